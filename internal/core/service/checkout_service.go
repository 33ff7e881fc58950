package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/port"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrCheckoutClosed   = errors.New("checkout service closed")
)

const persistTimeout = 5 * time.Second

type CheckoutRequest struct {
	RequestID    string               `json:"requestId"`
	UserID       string               `json:"userId"`
	Customer     domain.CustomerInfo  `json:"customer"`
	PaymentProof *domain.PaymentProof `json:"paymentProof,omitempty"`
}

// submission is one queued order waiting for a worker. The worker reports
// back on result, which is buffered so it never blocks.
type submission struct {
	order   domain.Order
	idemKey string
	cart    *CartStore
	lines   domain.CartSnapshot // what was ordered, removed from cart on success
	result  chan error
}

// CheckoutService turns a session cart into a persisted order. Submissions
// are tracked: the cart is cleared only after the order is stored, and a
// failure leaves cart and form input untouched.
type CheckoutService struct {
	sessions *CartSessions
	orders   port.OrderRepository
	cache    port.IdempotencyCache
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.RWMutex
	closed     bool
	orderQueue chan submission
	wg         sync.WaitGroup
}

func NewCheckoutService(sessions *CartSessions, orders port.OrderRepository, cache port.IdempotencyCache, queueSize int, logger *zap.Logger) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		sessions:   sessions,
		orders:     orders,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
		orderQueue: make(chan submission, queueSize),
	}
}

// Start launches the persistence workers.
func (s *CheckoutService) Start(workers int) {
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go func(id int) {
			defer s.wg.Done()
			s.workerLoop(id)
		}(i)
	}
	s.logger.Info("checkout workers started", zap.Int("workers", workers))
}

// Close stops accepting submissions and waits for queued ones to finish.
func (s *CheckoutService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.orderQueue)
	s.mu.Unlock()

	s.wg.Wait()
}

// Quote computes the split for the session cart without submitting anything.
func (s *CheckoutService) Quote(ctx context.Context, sessionID string) (domain.SplitBreakdown, error) {
	lines, err := s.sessions.Snapshot(ctx, sessionID)
	if err != nil {
		return domain.SplitBreakdown{}, err
	}
	return CalculateFinancials(lines), nil
}

func (s *CheckoutService) Submit(ctx context.Context, sessionID string, req CheckoutRequest) (*domain.Order, error) {
	cart, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	lines := cart.Snapshot()
	if err := ValidateCheckout(req, lines); err != nil {
		return nil, err
	}

	breakdown := CalculateFinancials(lines)
	if unpriced := UnpricedItems(lines); len(unpriced) > 0 {
		s.logger.Warn("checkout includes items without a price",
			zap.String("session", sessionID),
			zap.Strings("equipment_ids", unpriced))
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	idemKey := fmt.Sprintf("checkout:%s", req.RequestID)

	ok, err := s.cache.SetIdempotency(ctx, idemKey)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return nil, ErrDuplicateRequest
	}

	now := s.now()
	financials := breakdown.OrderFinancials
	order := domain.Order{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		RequestID:     req.RequestID,
		CustomerInfo:  req.Customer,
		Items:         domain.OrderItemsFromCart(lines),
		PaymentMethod: financials.PaymentMethod,
		Financials:    &financials,
		PaymentProof:  req.PaymentProof,
		Status:        domain.OrderStatusPendingApproval,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sub := submission{order: order, idemKey: idemKey, cart: cart, lines: lines, result: make(chan error, 1)}
	if err := s.enqueue(ctx, sub); err != nil {
		s.release(idemKey)
		return nil, err
	}

	select {
	case err := <-sub.result:
		if err != nil {
			return nil, err
		}
		return &order, nil
	case <-ctx.Done():
		// the worker still finishes the order and clears the cart on success
		return nil, ctx.Err()
	}
}

func (s *CheckoutService) enqueue(ctx context.Context, sub submission) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrCheckoutClosed
	}

	select {
	case s.orderQueue <- sub:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CheckoutService) workerLoop(id int) {
	for sub := range s.orderQueue {
		s.process(id, sub)
	}
}

func (s *CheckoutService) process(id int, sub submission) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	log := s.logger.With(zap.Int("worker", id), zap.String("order_id", sub.order.ID))

	if err := s.orders.CreateOrder(ctx, sub.order); err != nil {
		log.Error("failed to save order", zap.Error(err))
		s.release(sub.idemKey)
		sub.result <- fmt.Errorf("save order: %w", err)
		return
	}

	if err := sub.cart.RemoveOrdered(ctx, sub.lines); err != nil {
		// order is already stored, keep going
		log.Error("order saved but ordered lines not removed from cart", zap.Error(err))
	}

	log.Info("saved order",
		zap.Int64("total", sub.order.Financials.TotalOrderValue),
		zap.String("payment_method", string(sub.order.PaymentMethod)))
	sub.result <- nil
}

func (s *CheckoutService) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.ReleaseIdempotency(ctx, key); err != nil {
		s.logger.Error("rollback of idempotency key failed", zap.String("key", key), zap.Error(err))
	}
}
