package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/store"
)

// newRedisClient connects to TEST_REDIS_URL or skips the test.
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	client := newRedisClient(t)
	s := store.NewRedisStore(client)
	ctx := context.Background()

	jti := uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), s.Key(jti)) })

	invalidated, err := s.IsTokenInvalidated(ctx, jti)
	require.NoError(t, err)
	assert.False(t, invalidated)

	ok, err := s.ConsumeToken(ctx, jti, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ConsumeToken(ctx, jti, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	invalidated, err = s.IsTokenInvalidated(ctx, jti)
	require.NoError(t, err)
	assert.True(t, invalidated)

	ttl, err := client.TTL(ctx, s.Key(jti)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	mark, err := client.Get(ctx, s.Key(jti)).Result()
	require.NoError(t, err)
	assert.Equal(t, "consumed", mark)
}

func TestRedisStore_RevokedTokenCannotBeConsumed(t *testing.T) {
	client := newRedisClient(t)
	s := store.NewRedisStore(client)
	ctx := context.Background()

	jti := uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), s.Key(jti)) })

	require.NoError(t, s.InvalidateToken(ctx, jti, time.Minute))

	ok, err := s.ConsumeToken(ctx, jti, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Non-positive expiry is a no-op.
	other := uuid.NewString()
	require.NoError(t, s.InvalidateToken(ctx, other, 0))
	invalidated, err := s.IsTokenInvalidated(ctx, other)
	require.NoError(t, err)
	assert.False(t, invalidated)
}
