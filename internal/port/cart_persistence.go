package port

import (
	"context"
	"errors"

	"github.com/sagfo/storefront/internal/core/domain"
)

// ErrCorruptCart means a saved cart exists but cannot be decoded.
var ErrCorruptCart = errors.New("corrupt cart data")

type CartPersistence interface {
	// SaveCart replaces the whole snapshot stored under key
	SaveCart(ctx context.Context, key string, snapshot domain.CartSnapshot) error

	// LoadCart returns nil, nil when nothing was saved under key and an error
	// wrapping ErrCorruptCart when the saved value cannot be decoded
	LoadCart(ctx context.Context, key string) (domain.CartSnapshot, error)
}
