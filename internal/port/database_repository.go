package port

import (
	"context"
	"errors"

	"github.com/sagfo/storefront/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder persists a new order together with its items
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder returns nil, nil when the order does not exist
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// ListOrders returns every order, newest first
	ListOrders(ctx context.Context) ([]domain.Order, error)

	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error
}

type CatalogRepository interface {
	// GetEquipment returns nil, nil when the item does not exist
	GetEquipment(ctx context.Context, equipmentID string) (*domain.EquipmentItem, error)

	ListEquipment(ctx context.Context) ([]domain.EquipmentItem, error)

	// UpdateEquipmentPrice writes the new price with a version check for optimistic locking
	UpdateEquipmentPrice(ctx context.Context, item domain.EquipmentItem) error
}

type CatalogSeeder interface {
	// UpsertEquipment inserts the item or overwrites it, bumping its version
	UpsertEquipment(ctx context.Context, item domain.EquipmentItem) error
}

var (
	// ErrStoreUnavailable is returned while a backing store is failing fast.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already exists")
	// ErrOptimisticLock means the row changed since it was read.
	ErrOptimisticLock = errors.New("optimistic lock conflict")
)
