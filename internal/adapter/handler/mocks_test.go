package handler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/core/service"
)

type memCarts struct {
	mu    sync.Mutex
	slots map[string]domain.CartSnapshot
}

func (m *memCarts) SaveCart(ctx context.Context, key string, snapshot domain.CartSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = snapshot.Clone()
	return nil
}

func (m *memCarts) LoadCart(ctx context.Context, key string) (domain.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.slots[key]
	if !ok {
		return nil, nil
	}
	return snap.Clone(), nil
}

type memCache struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memCache) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func (m *memOrders) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *memOrders) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memOrders) ListOrders(ctx context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memOrders) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return errors.New("no rows")
	}
	o.Status = status
	o.StatusNote = note
	m.orders[orderID] = o
	return nil
}

type memCatalog struct {
	mu    sync.Mutex
	items map[string]domain.EquipmentItem
}

func (m *memCatalog) GetEquipment(ctx context.Context, equipmentID string) (*domain.EquipmentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[equipmentID]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (m *memCatalog) ListEquipment(ctx context.Context) ([]domain.EquipmentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EquipmentItem, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCatalog) UpdateEquipmentPrice(ctx context.Context, item domain.EquipmentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.Version++
	m.items[item.ID] = item
	return nil
}

type testApp struct {
	sessions *service.CartSessions
	catalog  *service.CatalogService
	checkout *service.CheckoutService
	admin    *service.AdminService
	orders   *memOrders
	items    *memCatalog
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	items := &memCatalog{items: map[string]domain.EquipmentItem{
		"bar":   {ID: "bar", Name: "Barra Olímpica", Price: 300_000, AvailabilityStatus: domain.AvailabilityInStock},
		"press": {ID: "press", Name: "Prensa 45°", Price: 1_000_000, AvailabilityStatus: domain.AvailabilityMadeToOrder},
	}}
	orders := &memOrders{orders: map[string]domain.Order{}}

	sessions := service.NewCartSessions(&memCarts{slots: map[string]domain.CartSnapshot{}}, zap.NewNop())
	checkout := service.NewCheckoutService(sessions, orders, &memCache{keys: map[string]bool{}}, 10, zap.NewNop())
	checkout.Start(1)
	t.Cleanup(checkout.Close)

	return &testApp{
		sessions: sessions,
		catalog:  service.NewCatalogService(items),
		checkout: checkout,
		admin:    service.NewAdminService(orders, items, zap.NewNop()),
		orders:   orders,
		items:    items,
	}
}
