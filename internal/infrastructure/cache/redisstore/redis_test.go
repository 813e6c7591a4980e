package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a live server: REDIS_TEST_ADDR=localhost:6379 go test ./...
func TestStoreAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	s, err := Dial(ctx, addr, 15)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	key := "minishop:test:" + t.Name()
	t.Cleanup(func() { _ = s.Remove(context.Background(), key) })

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, []byte("v"), time.Minute))
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.Remove(ctx, key))
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveWithoutKeysIsNoop(t *testing.T) {
	s := New(nil)
	assert.NoError(t, s.Remove(context.Background()))
}
