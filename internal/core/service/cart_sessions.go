package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/port"
)

const (
	cartKeyPrefix  = "cartItems:"
	restoreTimeout = 5 * time.Second
)

var ErrMissingSession = errors.New("missing session id")

type sessionEntry struct {
	cart       *CartStore
	lastAccess time.Time
}

// CartSessions hands out one CartStore per shopper session, restoring it from
// persistence on first use. Sessions idle longer than the eviction window are
// dropped from memory and restored again on their next request.
type CartSessions struct {
	persistence port.CartPersistence
	logger      *zap.Logger
	now         func() time.Time

	mu    sync.Mutex
	carts map[string]*sessionEntry
	sfg   singleflight.Group // one restore per session
}

func NewCartSessions(persistence port.CartPersistence, logger *zap.Logger) *CartSessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartSessions{
		persistence: persistence,
		logger:      logger,
		now:         time.Now,
		carts:       make(map[string]*sessionEntry),
	}
}

// Get returns the session's cart. The restore outlives the caller's context
// so one canceled request cannot leave a half-loaded cart behind; a restore
// that fails for any reason other than corrupt data is not cached.
func (s *CartSessions) Get(ctx context.Context, sessionID string) (*CartStore, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	if cart, ok := s.touch(sessionID); ok {
		return cart, nil
	}

	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		if existing, ok := s.touch(sessionID); ok {
			return existing, nil
		}

		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
		defer cancel()

		restored := NewCartStore(cartKeyPrefix+sessionID, s.persistence, s.logger.With(zap.String("session", sessionID)))
		if err := restored.Restore(restoreCtx); err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.carts[sessionID] = &sessionEntry{cart: restored, lastAccess: s.now()}
		s.mu.Unlock()
		return restored, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CartStore), nil
}

func (s *CartSessions) touch(sessionID string) (*CartStore, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.carts[sessionID]
	if !ok {
		return nil, false
	}
	entry.lastAccess = s.now()
	return entry.cart, true
}

// Snapshot is a convenience for read-only callers.
func (s *CartSessions) Snapshot(ctx context.Context, sessionID string) (domain.CartSnapshot, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return cart.Snapshot(), nil
}

// EvictIdle drops carts not requested within idle and reports how many went.
// Persistence keeps the contents; only the in-memory copy is released.
func (s *CartSessions) EvictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, entry := range s.carts {
		if entry.lastAccess.Before(cutoff) {
			delete(s.carts, id)
			evicted++
		}
	}
	return evicted
}

// Len reports how many carts are held in memory.
func (s *CartSessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

// RunEviction sweeps idle carts every interval until ctx is done.
func (s *CartSessions) RunEviction(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(idle); n > 0 {
				s.logger.Debug("evicted idle carts", zap.Int("count", n), zap.Int("remaining", s.Len()))
			}
		}
	}
}
