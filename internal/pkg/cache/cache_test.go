package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestGetOrSetLoadsOnceThenHits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	loads := 0
	load := func(context.Context) (*item, error) {
		loads++
		return &item{ID: "a", Count: loads}, nil
	}

	first, err := GetOrSet(ctx, s, "k", time.Minute, load)
	require.NoError(t, err)
	second, err := GetOrSet(ctx, s, "k", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)
}

func TestGetOrSetDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	_, err := GetOrSet(ctx, s, "k", time.Minute, func(context.Context) (*item, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, s.Len())
}

func TestGetOrSetDropsUndecodableEntry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k", []byte("{not json"), time.Minute))

	v, err := GetOrSet(ctx, s, "k", time.Minute, func(context.Context) (*item, error) {
		return &item{ID: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v.ID)

	raw, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"fresh","count":0}`, string(raw))
}

type faultyStore struct{ err error }

func (f faultyStore) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, f.err }
func (f faultyStore) Set(context.Context, string, []byte, time.Duration) error { return f.err }
func (f faultyStore) Remove(context.Context, ...string) error                  { return f.err }

func TestGetOrSetIgnoresCacheFaults(t *testing.T) {
	s := Instrument(faultyStore{err: errors.New("redis down")}, "test", nil)

	v, err := GetOrSet(context.Background(), s, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "forever", []byte("2"), 0))

	now = now.Add(2 * time.Second)

	_, ok, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := s.Get(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), v)
	assert.Equal(t, 1, s.Len())
}

func TestInvalidateSkipsEmptyKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, OrderKey("o-1"), []byte("x"), 0))
	require.NoError(t, s.Set(ctx, OrderPaymentsKey("o-1"), []byte("y"), 0))

	require.NoError(t, Invalidate(ctx, s, "", OrderKey("o-1")))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, Invalidate(ctx, s))
	require.NoError(t, Invalidate(ctx, nil, "k"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "minishop:order:o-1", OrderKey("o-1"))
	assert.Equal(t, "minishop:order:o-1:payments", OrderPaymentsKey("o-1"))
}
