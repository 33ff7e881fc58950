package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sagfo/storefront/internal/core/domain"
)

var errStorageDown = errors.New("storage down")

// Mock CartPersistence
type mockCartPersistence struct {
	mu       sync.Mutex
	slots    map[string]domain.CartSnapshot
	saves    int
	failSave bool
	loadErr  error
	loads    int
}

func newMockCartPersistence() *mockCartPersistence {
	return &mockCartPersistence{slots: make(map[string]domain.CartSnapshot)}
}

func (m *mockCartPersistence) SaveCart(ctx context.Context, key string, snapshot domain.CartSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errStorageDown
	}
	m.saves++
	m.slots[key] = snapshot.Clone()
	return nil
}

func (m *mockCartPersistence) LoadCart(ctx context.Context, key string) (domain.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	snap, ok := m.slots[key]
	if !ok {
		return nil, nil
	}
	return snap.Clone(), nil
}

func (m *mockCartPersistence) setLoadErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// Mock IdempotencyCache
type mockCacheRepo struct {
	mu             sync.Mutex
	idempotencySet map[string]bool
	released       []string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{idempotencySet: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	m.released = append(m.released, key)
	return nil
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	failWrite bool

	// when set, CreateOrder signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newMockOrderRepo(orders ...domain.Order) *mockOrderRepo {
	m := &mockOrderRepo{orders: make(map[string]domain.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order domain.Order) error {
	if m.release != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errStorageDown
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *mockOrderRepo) ListOrders(ctx context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockOrderRepo) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error {
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

func (m *mockOrderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Mock CatalogRepository
type mockCatalog struct {
	mu    sync.Mutex
	items map[string]domain.EquipmentItem
}

func newMockCatalog(items ...domain.EquipmentItem) *mockCatalog {
	m := &mockCatalog{items: make(map[string]domain.EquipmentItem)}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *mockCatalog) GetEquipment(ctx context.Context, equipmentID string) (*domain.EquipmentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[equipmentID]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (m *mockCatalog) ListEquipment(ctx context.Context) ([]domain.EquipmentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EquipmentItem, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCatalog) UpdateEquipmentPrice(ctx context.Context, item domain.EquipmentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.Version++
	m.items[item.ID] = item
	return nil
}

func inStock(id string, price int64) domain.EquipmentItem {
	return domain.EquipmentItem{ID: id, Name: "Equipo " + id, Price: price, AvailabilityStatus: domain.AvailabilityInStock}
}

func madeToOrder(id string, price int64) domain.EquipmentItem {
	return domain.EquipmentItem{ID: id, Name: "Equipo " + id, Price: price, AvailabilityStatus: domain.AvailabilityMadeToOrder}
}

func (m *mockCatalog) UpsertEquipment(ctx context.Context, item domain.EquipmentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.items[item.ID]; ok {
		item.Version = prev.Version + 1
	}
	m.items[item.ID] = item
	return nil
}
