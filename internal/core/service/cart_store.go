package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/port"
)

// CartStore owns one shopping cart. Every mutation builds the next snapshot,
// persists it and only then replaces the in-memory copy, so a failed save
// leaves the cart exactly as it was. Mutations that would push a line past
// domain.MaxLineQuantity or the cart total past int64 are rejected the same way.
type CartStore struct {
	mu          sync.Mutex
	key         string
	lines       domain.CartSnapshot
	persistence port.CartPersistence
	newID       func() string
	logger      *zap.Logger
}

func NewCartStore(key string, persistence port.CartPersistence, logger *zap.Logger) *CartStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartStore{
		key:         key,
		lines:       domain.CartSnapshot{},
		persistence: persistence,
		newID:       uuid.NewString,
		logger:      logger,
	}
}

// Restore loads the saved snapshot. A missing or corrupt slot leaves the cart
// empty. Any other load failure is returned and the cart is left untouched.
func (c *CartStore) Restore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	saved, err := c.persistence.LoadCart(ctx, c.key)
	switch {
	case errors.Is(err, port.ErrCorruptCart):
		c.logger.Warn("discarding saved cart", zap.String("key", c.key), zap.Error(err))
		c.lines = domain.CartSnapshot{}
		return nil
	case err != nil:
		return fmt.Errorf("load cart: %w", err)
	}

	lines := make(domain.CartSnapshot, 0, len(saved))
	for _, line := range saved {
		if line.Quantity < 1 || line.CartItemID == "" {
			c.logger.Warn("dropping invalid saved cart line",
				zap.String("key", c.key),
				zap.String("cart_item_id", line.CartItemID),
				zap.Int("quantity", line.Quantity))
			continue
		}
		candidate := append(lines, line)
		if err := candidate.CheckAmounts(); err != nil {
			c.logger.Warn("dropping saved cart line",
				zap.String("key", c.key),
				zap.String("cart_item_id", line.CartItemID),
				zap.Error(err))
			continue
		}
		lines = candidate
	}
	c.lines = lines
	return nil
}

func (c *CartStore) Snapshot() domain.CartSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines.Clone()
}

// AddItem merges into the line with the same equipment and customization or
// appends a new line with quantity 1.
func (c *CartStore) AddItem(ctx context.Context, equipment domain.EquipmentItem, custom domain.Customization) (domain.CartLineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	custom = custom.Normalized()
	next := c.lines.Clone()

	idx := -1
	for i, line := range next {
		if line.SameSelection(equipment.ID, custom) {
			idx = i
			break
		}
	}

	if idx >= 0 {
		next[idx].Quantity++
	} else {
		next = append(next, domain.CartLineItem{
			CartItemID:    c.newID(),
			Equipment:     equipment,
			Quantity:      1,
			Customization: custom,
		})
		idx = len(next) - 1
	}

	if err := c.commit(ctx, next); err != nil {
		return domain.CartLineItem{}, err
	}
	return next[idx], nil
}

// UpdateCustomization replaces one attribute of a line. An unknown line is
// ignored; an unknown field is rejected.
func (c *CartStore) UpdateCustomization(ctx context.Context, cartItemID string, field domain.CustomizationField, value string) error {
	var check domain.Customization
	if err := check.Set(field, value); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.lines.Index(cartItemID)
	if idx < 0 {
		return nil
	}

	next := c.lines.Clone()
	if err := next[idx].Customization.Set(field, value); err != nil {
		return err
	}
	return c.commit(ctx, next)
}

func (c *CartStore) RemoveItem(ctx context.Context, cartItemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(ctx, cartItemID)
}

func (c *CartStore) removeLocked(ctx context.Context, cartItemID string) error {
	idx := c.lines.Index(cartItemID)
	if idx < 0 {
		return nil
	}

	next := make(domain.CartSnapshot, 0, len(c.lines)-1)
	next = append(next, c.lines[:idx]...)
	next = append(next, c.lines[idx+1:]...)
	return c.commit(ctx, next)
}

// UpdateQuantity removes the line when quantity drops below 1.
func (c *CartStore) UpdateQuantity(ctx context.Context, cartItemID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity < 1 {
		return c.removeLocked(ctx, cartItemID)
	}

	idx := c.lines.Index(cartItemID)
	if idx < 0 || c.lines[idx].Quantity == quantity {
		return nil
	}

	next := c.lines.Clone()
	next[idx].Quantity = quantity
	return c.commit(ctx, next)
}

// AddPackage adds a prebuilt bundle. Lines merge on the same key as AddItem
// and new lines always get a fresh CartItemID.
func (c *CartStore) AddPackage(ctx context.Context, lines []domain.CartLineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.lines.Clone()
	changed := false
	for _, incoming := range lines {
		if incoming.Quantity < 1 {
			continue
		}
		custom := incoming.Customization.Normalized()

		merged := false
		for i := range next {
			if next[i].SameSelection(incoming.Equipment.ID, custom) {
				next[i].Quantity += incoming.Quantity
				merged = true
				break
			}
		}
		if !merged {
			next = append(next, domain.CartLineItem{
				CartItemID:    c.newID(),
				Equipment:     incoming.Equipment,
				Quantity:      incoming.Quantity,
				Customization: custom,
			})
		}
		changed = true
	}

	if !changed {
		return nil
	}
	return c.commit(ctx, next)
}

// RemoveOrdered takes checked-out lines out of the cart. Each ordered line
// lowers the matching line by the ordered quantity and drops it once nothing
// is left. Lines added while the order was being placed stay in the cart.
func (c *CartStore) RemoveOrdered(ctx context.Context, ordered domain.CartSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.lines.Clone()
	changed := false
	for _, line := range ordered {
		idx := next.Index(line.CartItemID)
		if idx < 0 {
			continue
		}
		changed = true
		if next[idx].Quantity > line.Quantity {
			next[idx].Quantity -= line.Quantity
			continue
		}
		next = append(next[:idx], next[idx+1:]...)
	}

	if !changed {
		return nil
	}
	return c.commit(ctx, next)
}

func (c *CartStore) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commit(ctx, domain.CartSnapshot{})
}

func (c *CartStore) commit(ctx context.Context, next domain.CartSnapshot) error {
	if err := next.CheckAmounts(); err != nil {
		return err
	}
	if err := c.persistence.SaveCart(ctx, c.key, next); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	c.lines = next
	return nil
}
