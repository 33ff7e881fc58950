package service

import (
	"strings"

	"github.com/sagfo/storefront/internal/core/domain"
)

const (
	defaultProspectName = "CLIENTE POTENCIAL"
	defaultProspectCity = "POR DEFINIR"
	manualLineDetails   = "Equipamiento Elite Sagfo"
)

// QuoteFromOrder projects a committed order into a printable quote. Lines use
// the price frozen at purchase, falling back to the current catalog price.
// The total is the order's stored total when financials were recorded and is
// recomputed from the items otherwise.
func QuoteFromOrder(order domain.Order) domain.Quote {
	q := domain.Quote{
		CustomerName: order.CustomerInfo.Name,
		Destination:  joinNonEmpty(", ", order.CustomerInfo.City, order.CustomerInfo.Department),
		Lines:        make([]domain.QuoteLine, 0, len(order.Items)),
	}

	for _, item := range order.Items {
		qty := item.Quantity
		if qty < 0 {
			qty = 0
		}
		unit := item.UnitPrice()
		line := domain.QuoteLine{
			EquipmentID: item.Equipment.ID,
			Name:        item.Equipment.Name,
			Details:     orderItemDetails(item.Customization),
			ImageURL:    firstImage(item.Equipment),
			Quantity:    qty,
			UnitPrice:   unit,
			Subtotal:    unit * int64(qty),
		}
		q.ItemCount += qty
		q.Lines = append(q.Lines, line)
	}

	if order.Financials != nil {
		q.Total = order.Financials.TotalOrderValue
	} else {
		q.Total = CalculateOrderFinancials(order.Items).TotalOrderValue
	}
	return q
}

// QuoteFromManualSelection builds an ad-hoc quote. The unit price is always
// the manually entered one.
func QuoteFromManualSelection(items []domain.ManualQuoteItem, customerName, customerCity string) domain.Quote {
	q := domain.Quote{
		CustomerName: strings.TrimSpace(customerName),
		Destination:  strings.TrimSpace(customerCity),
		Lines:        make([]domain.QuoteLine, 0, len(items)),
	}
	if q.CustomerName == "" {
		q.CustomerName = defaultProspectName
	}
	if q.Destination == "" {
		q.Destination = defaultProspectCity
	}

	for _, item := range items {
		qty := max(item.Quantity, 1)
		unit := max(item.Price, 0)
		line := domain.QuoteLine{
			EquipmentID: item.Product.ID,
			Name:        item.Product.Name,
			Details:     manualLineDetails,
			ImageURL:    firstImage(item.Product),
			Quantity:    qty,
			UnitPrice:   unit,
			Subtotal:    unit * int64(qty),
		}
		q.ItemCount += qty
		q.Total += line.Subtotal
		q.Lines = append(q.Lines, line)
	}
	return q
}

// ToggleManualItem adds product at its catalog price with quantity 1, or
// removes it when it is already part of the selection.
func ToggleManualItem(items []domain.ManualQuoteItem, product domain.EquipmentItem) []domain.ManualQuoteItem {
	out := make([]domain.ManualQuoteItem, 0, len(items)+1)
	removed := false
	for _, item := range items {
		if item.Product.ID == product.ID {
			removed = true
			continue
		}
		out = append(out, item)
	}
	if !removed {
		out = append(out, domain.ManualQuoteItem{Product: product, Quantity: 1, Price: product.Price})
	}
	return out
}

func orderItemDetails(c domain.Customization) string {
	var parts []string
	if c.StructureColor != nil && *c.StructureColor != "" {
		parts = append(parts, "Estructura: "+*c.StructureColor)
	}
	if c.UpholsteryColor != nil && *c.UpholsteryColor != "" {
		parts = append(parts, "Tapicería: "+*c.UpholsteryColor)
	}
	return strings.Join(parts, " | ")
}

func firstImage(e domain.EquipmentItem) string {
	if len(e.ImageURLs) == 0 {
		return ""
	}
	return e.ImageURLs[0]
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
