package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// pendingMarker is stored while the first request for a key is in flight.
const pendingMarker = "-"

// RedisDeduper stores Idempotency-Key headers in Redis so that every
// instance answers a retried create with the card made the first time.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(orgID, key string) string {
	return fmt.Sprintf("idem:%s:%s", orgID, key)
}

// Claim records the key if it does not already exist. It returns true when
// the caller owns the key and should perform the create.
func (r *RedisDeduper) Claim(ctx context.Context, orgID, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(orgID, key), pendingMarker, r.ttl).Result()
}

// Remember stores the id of the card created for key.
func (r *RedisDeduper) Remember(ctx context.Context, orgID, key, cardID string) error {
	return r.client.Set(ctx, r.key(orgID, key), cardID, r.ttl).Err()
}

// Lookup returns the card id created for key, or "" while the first request
// is still running or after the key expired.
func (r *RedisDeduper) Lookup(ctx context.Context, orgID, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(orgID, key)).Result()
	if errors.Is(err, redis.Nil) || v == pendingMarker {
		return "", nil
	}
	return v, err
}

// Release forgets key so a failed create may be retried.
func (r *RedisDeduper) Release(ctx context.Context, orgID, key string) error {
	return r.client.Del(ctx, r.key(orgID, key)).Err()
}
