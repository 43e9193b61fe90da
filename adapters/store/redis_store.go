package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d1c-app/d1c-gateway/ports"
)

// RedisStore is a Redis implementation of the NonceStore interface.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis nonce store.
func NewRedisStore(client *redis.Client) ports.NonceStore {
	return &RedisStore{
		client: client,
		prefix: "d1c:nonce:",
	}
}

// Consume marks a nonce as used via SETNX, which makes the first caller win
// atomically across instances.
func (s *RedisStore) Consume(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	key := s.prefix + nonce

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}

	return ok, nil
}
