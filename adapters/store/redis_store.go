package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gladiston-Porto/Trading-APP-sub001/ports"
)

// DefaultRedisPrefix namespaces the keys written by RedisStore
const DefaultRedisPrefix = "tradeauth:refresh:"

// Values stored under a blocked token ID, useful when inspecting keys by hand
const (
	markRevoked  = "revoked"
	markConsumed = "consumed"
)

// RedisStore keeps blocked refresh token IDs in Redis with a TTL equal to
// the token's remaining lifetime
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
	}
}

// Key is the Redis key used for tokenID
func (s *RedisStore) Key(tokenID string) string {
	return s.prefix + tokenID
}

// InvalidateToken revokes tokenID. A token that is already blocked keeps its
// existing entry and TTL.
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}

	if err := s.client.SetNX(ctx, s.Key(tokenID), markRevoked, expiry).Err(); err != nil {
		return fmt.Errorf("failed to revoke token %s: %w", tokenID, err)
	}
	return nil
}

// IsTokenInvalidated reports whether tokenID was revoked or consumed
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.Key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up token %s: %w", tokenID, err)
	}
	return n > 0, nil
}

// ConsumeToken relies on SET NX, so of several concurrent rotations of the
// same token exactly one succeeds
func (s *RedisStore) ConsumeToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error) {
	if expiry <= 0 {
		return false, nil
	}

	won, err := s.client.SetNX(ctx, s.Key(tokenID), markConsumed, expiry).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume token %s: %w", tokenID, err)
	}
	return won, nil
}
