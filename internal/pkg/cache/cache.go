package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Store is a best-effort key/value cache. It is never the source of truth.
type Store interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, keys ...string) error
}

type nopStore struct{}

func (nopStore) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (nopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (nopStore) Remove(context.Context, ...string) error                  { return nil }

// Nop returns a store that never holds anything.
func Nop() Store { return nopStore{} }

// GetOrSet returns the cached value for key, or calls load and caches its result for ttl.
// Cache faults are ignored: the value from load is returned even if it could not be stored.
func GetOrSet[T any](ctx context.Context, s Store, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if s == nil {
		s = Nop()
	}
	if raw, ok, err := s.Get(ctx, key); err == nil && ok {
		var v T
		if json.Unmarshal(raw, &v) == nil {
			return v, nil
		}
		_ = s.Remove(ctx, key)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if raw, mErr := json.Marshal(v); mErr == nil {
		_ = s.Set(ctx, key, raw, ttl)
	}
	return v, nil
}

// Invalidate removes keys and ignores empty ones.
func Invalidate(ctx context.Context, s Store, keys ...string) error {
	if s == nil {
		return nil
	}
	filtered := keys[:0:0]
	for _, k := range keys {
		if k != "" {
			filtered = append(filtered, k)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return s.Remove(ctx, filtered...)
}
