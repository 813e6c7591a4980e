package cache

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
)

type instrumented struct {
	next     Store
	name     string
	requests observability.Counter // cache_requests_total{cache,op,result}
	log      observability.Logger
}

// Instrument counts hits, misses and faults of s and logs faults at warn level.
func Instrument(s Store, name string, tel observability.Observability) Store {
	tel = observability.OrNop(tel)
	return &instrumented{
		next:     s,
		name:     name,
		requests: tel.Metrics().Counter(observability.MCacheRequests),
		log:      tel.Logger().With(observability.F("component", "cache"), observability.F("cache", name)),
	}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := c.next.Get(ctx, key)
	switch {
	case err != nil:
		c.count("get", "error")
		c.log.Warn("cache_get_failed", observability.F("key", key), observability.Err(err))
	case ok:
		c.count("get", "hit")
	default:
		c.count("get", "miss")
	}
	return v, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.next.Set(ctx, key, value, ttl)
	c.count("set", resultOf(err))
	if err != nil {
		c.log.Warn("cache_set_failed", observability.F("key", key), observability.Err(err))
	}
	return err
}

func (c *instrumented) Remove(ctx context.Context, keys ...string) error {
	err := c.next.Remove(ctx, keys...)
	c.count("remove", resultOf(err))
	if err != nil {
		c.log.Warn("cache_remove_failed", observability.F("keys", keys), observability.Err(err))
	}
	return err
}

func (c *instrumented) count(op, result string) {
	c.requests.Add(1,
		observability.L("cache", c.name),
		observability.L("op", op),
		observability.L("result", result),
	)
}

func resultOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
