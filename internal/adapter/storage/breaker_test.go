package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/port"
)

type flakyOrders struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *flakyOrders) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *flakyOrders) CreateOrder(ctx context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *flakyOrders) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return nil, nil
}

func (f *flakyOrders) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return nil, nil
}

func (f *flakyOrders) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error {
	return nil
}

func TestGuardedOrders_TripsAndRecovers(t *testing.T) {
	inner := &flakyOrders{err: errors.New("connection refused")}
	guarded := NewGuardedOrders(inner, BreakerSettings{ConsecutiveFailures: 3, OpenTimeout: 50 * time.Millisecond}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := guarded.CreateOrder(ctx, domain.Order{ID: "o"})
		require.Error(t, err)
		assert.False(t, errors.Is(err, port.ErrStoreUnavailable))
	}
	assert.Equal(t, "open", guarded.State())

	err := guarded.CreateOrder(ctx, domain.Order{ID: "o"})
	assert.ErrorIs(t, err, port.ErrStoreUnavailable)
	assert.Equal(t, 3, inner.calls, "open breaker does not reach the store")

	inner.setErr(nil)
	time.Sleep(80 * time.Millisecond)

	require.NoError(t, guarded.CreateOrder(ctx, domain.Order{ID: "o"}))
	assert.Equal(t, "closed", guarded.State())
}

func TestGuardedOrders_DuplicatesDoNotTrip(t *testing.T) {
	inner := &flakyOrders{err: ErrDuplicateOrder}
	guarded := NewGuardedOrders(inner, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())

	for i := 0; i < 5; i++ {
		err := guarded.CreateOrder(context.Background(), domain.Order{ID: "o"})
		assert.ErrorIs(t, err, ErrDuplicateOrder)
	}
	assert.Equal(t, "closed", guarded.State())
	assert.Equal(t, 5, inner.calls)
}

func TestGuardedOrders_ReadsPassThrough(t *testing.T) {
	inner := &flakyOrders{err: errors.New("down")}
	guarded := NewGuardedOrders(inner, BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Minute}, zap.NewNop())

	_ = guarded.CreateOrder(context.Background(), domain.Order{ID: "o"})
	require.Equal(t, "open", guarded.State())

	orders, err := guarded.ListOrders(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, orders)
}
