package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/port"
)

type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a probe.
	OpenTimeout time.Duration
}

var DefaultBreakerSettings = BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 10 * time.Second}

// GuardedOrders fails order writes fast once the store keeps failing.
// Reads pass straight through; the admin screens should still try.
type GuardedOrders struct {
	port.OrderRepository
	cb *gobreaker.CircuitBreaker[struct{}]
}

func NewGuardedOrders(orders port.OrderRepository, settings BreakerSettings, logger *zap.Logger) *GuardedOrders {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = DefaultBreakerSettings.ConsecutiveFailures
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "orders",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		// a duplicate or a caller timeout says nothing about store health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDuplicateOrder) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &GuardedOrders{OrderRepository: orders, cb: cb}
}

func (g *GuardedOrders) CreateOrder(ctx context.Context, order domain.Order) error {
	_, err := g.cb.Execute(func() (struct{}, error) {
		return struct{}{}, g.OrderRepository.CreateOrder(ctx, order)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", port.ErrStoreUnavailable, err)
	}
	return err
}

// State reports the breaker state for health checks.
func (g *GuardedOrders) State() string {
	return g.cb.State().String()
}
