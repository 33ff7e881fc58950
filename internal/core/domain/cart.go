package domain

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps the units a single cart line can hold.
const MaxLineQuantity = 9999

var (
	ErrUnknownCustomizationField = errors.New("unknown customization field")
	ErrQuantityTooLarge          = errors.New("quantity exceeds the per-line limit")
	ErrAmountOverflow            = errors.New("cart amount out of range")
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

type CustomizationField string

const (
	FieldSelectedColor   CustomizationField = "selectedColor"
	FieldSelectedWeight  CustomizationField = "selectedWeight"
	FieldStructureColor  CustomizationField = "structureColor"
	FieldUpholsteryColor CustomizationField = "upholsteryColor"
)

// Customization holds the optional per-line attributes. A nil pointer means
// the attribute was never chosen, which is distinct from an empty string.
type Customization struct {
	SelectedColor   *string `json:"selectedColor,omitempty"`
	SelectedWeight  *string `json:"selectedWeight,omitempty"`
	StructureColor  *string `json:"structureColor,omitempty"`
	UpholsteryColor *string `json:"upholsteryColor,omitempty"`
}

// Attr returns a pointer to a normalized copy of s.
func Attr(s string) *string {
	n := NormalizeCustomization(s)
	return &n
}

// NormalizeCustomization trims the value and collapses inner runs of
// whitespace. It is the only normalization applied to customization values;
// comparisons additionally ignore case.
func NormalizeCustomization(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sameAttr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.EqualFold(NormalizeCustomization(*a), NormalizeCustomization(*b))
}

func normalizedAttr(s *string) *string {
	if s == nil {
		return nil
	}
	return Attr(*s)
}

// Normalized returns a copy with every present attribute normalized and the
// structure color defaulted to the selected color when it was not chosen.
func (c Customization) Normalized() Customization {
	out := Customization{
		SelectedColor:   normalizedAttr(c.SelectedColor),
		SelectedWeight:  normalizedAttr(c.SelectedWeight),
		StructureColor:  normalizedAttr(c.StructureColor),
		UpholsteryColor: normalizedAttr(c.UpholsteryColor),
	}
	if out.StructureColor == nil && out.SelectedColor != nil {
		sc := *out.SelectedColor
		out.StructureColor = &sc
	}
	return out
}

func cloneAttr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Clone copies the attribute values so the result shares no pointers with c.
func (c Customization) Clone() Customization {
	return Customization{
		SelectedColor:   cloneAttr(c.SelectedColor),
		SelectedWeight:  cloneAttr(c.SelectedWeight),
		StructureColor:  cloneAttr(c.StructureColor),
		UpholsteryColor: cloneAttr(c.UpholsteryColor),
	}
}

func (c Customization) Matches(o Customization) bool {
	return sameAttr(c.SelectedColor, o.SelectedColor) &&
		sameAttr(c.SelectedWeight, o.SelectedWeight) &&
		sameAttr(c.StructureColor, o.StructureColor) &&
		sameAttr(c.UpholsteryColor, o.UpholsteryColor)
}

func (c *Customization) Set(field CustomizationField, value string) error {
	v := Attr(value)
	switch field {
	case FieldSelectedColor:
		c.SelectedColor = v
	case FieldSelectedWeight:
		c.SelectedWeight = v
	case FieldStructureColor:
		c.StructureColor = v
	case FieldUpholsteryColor:
		c.UpholsteryColor = v
	default:
		return ErrUnknownCustomizationField
	}
	return nil
}

type CartLineItem struct {
	CartItemID string        `json:"cartItemId"`
	Equipment  EquipmentItem `json:"equipment"`
	Quantity   int           `json:"quantity"`
	Customization
}

// SameSelection reports whether two lines describe the same equipment with
// the same customization, i.e. whether they should merge into one line.
func (l CartLineItem) SameSelection(equipmentID string, c Customization) bool {
	return l.Equipment.ID == equipmentID && l.Customization.Matches(c)
}

func (l CartLineItem) Subtotal() int64 {
	if l.Quantity < 1 || l.Equipment.Price < 0 {
		return 0
	}
	return l.Equipment.Price * int64(l.Quantity)
}

// CartSnapshot is the ordered list of cart lines at a point in time.
type CartSnapshot []CartLineItem

func (s CartSnapshot) Clone() CartSnapshot {
	if s == nil {
		return CartSnapshot{}
	}
	out := make(CartSnapshot, len(s))
	for i, line := range s {
		line.Customization = line.Customization.Clone()
		line.Equipment = line.Equipment.Clone()
		out[i] = line
	}
	return out
}

func (s CartSnapshot) Index(cartItemID string) int {
	for i, line := range s {
		if line.CartItemID == cartItemID {
			return i
		}
	}
	return -1
}

// CheckAmounts fails when a line holds more than MaxLineQuantity units or
// when a subtotal or the cart total would not fit in an int64.
func (s CartSnapshot) CheckAmounts() error {
	total := decimal.Zero
	for _, line := range s {
		if line.Quantity > MaxLineQuantity {
			return ErrQuantityTooLarge
		}
		if line.Quantity < 1 || line.Equipment.Price < 0 {
			continue
		}
		total = total.Add(decimal.NewFromInt(line.Equipment.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
		if total.GreaterThan(maxAmount) {
			return ErrAmountOverflow
		}
	}
	return nil
}

func (s CartSnapshot) TotalQuantity() int {
	n := 0
	for _, line := range s {
		n += line.Quantity
	}
	return n
}
