package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/port"
)

const (
	idempotencyKeyTTL = 24 * time.Hour
	DefaultCartTTL    = 30 * 24 * time.Hour
)

// RedisAdapter stores session carts as JSON blobs and holds checkout
// idempotency keys.
type RedisAdapter struct {
	client  *redis.Client
	cartTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, cartTTL time.Duration) *RedisAdapter {
	if cartTTL <= 0 {
		cartTTL = DefaultCartTTL
	}
	return &RedisAdapter{client: client, cartTTL: cartTTL}
}

// SaveCart overwrites the snapshot under key and refreshes its TTL.
func (r *RedisAdapter) SaveCart(ctx context.Context, key string, snapshot domain.CartSnapshot) error {
	data, err := json.Marshal(snapshot.Clone())
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	return r.client.Set(ctx, key, data, r.cartTTL).Err()
}

func (r *RedisAdapter) LoadCart(ctx context.Context, key string) (domain.CartSnapshot, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot domain.CartSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: unmarshal cart failed: %v", port.ErrCorruptCart, err)
	}
	return snapshot, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
