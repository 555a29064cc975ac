// Package ratelimit provides an injected, explicitly-scoped attempt
// counter backed by Redis with TTL. Callers pass it into the request layer;
// there is no module-level state.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// CounterStore limits attempts per key in a fixed time window.
type CounterStore struct {
	limit  int
	window time.Duration

	client *redis.Client
	prefix string
}

// NewCounterStore creates a Redis-backed counter store.
func NewCounterStore(addr, password, prefix string, limit int, window time.Duration) (*CounterStore, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("counter store requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("counter store redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "coursebridge:sso"
	}
	return &CounterStore{
		limit:  limit,
		window: window,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
	}, nil
}

// Allow returns true when the key is within quota. A nil store allows
// everything, so the limiter stays optional at wiring time. On Redis
// failures it fails closed.
func (c *CounterStore) Allow(key string) bool {
	if c == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := c.window.Milliseconds()
	windowSlot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", c.prefix, key, windowSlot)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := fixedWindowScript.Run(ctx, c.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false
	}
	return res <= int64(c.limit)
}
