package concurrency

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var acquireScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local current = tonumber(redis.call('GET', key) or '0')
if current < limit then
  current = redis.call('INCR', key)
  if ttl > 0 then
    redis.call('PEXPIRE', key, ttl)
  end
  return 1
end
return 0
`)

var releaseScript = redis.NewScript(`
local key = KEYS[1]
local current = tonumber(redis.call('GET', key) or '0')
if current <= 0 then
  redis.call('DEL', key)
  return 0
end
return redis.call('DECR', key)
`)

// Limiter caps in-flight calls per scope across processes using Redis counters.
// All dispatchers sharing an API key should share a scope.
type Limiter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLimiter constructs a concurrency limiter.
func NewLimiter(client *redis.Client, ttl time.Duration) *Limiter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Limiter{client: client, ttl: ttl}
}

// Acquire attempts to reserve a slot in scope. A non-positive limit always succeeds.
func (l *Limiter) Acquire(ctx context.Context, scope string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	res, err := acquireScript.Run(ctx, l.client, []string{l.key(scope)}, limit, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("concurrency acquire: %w", err)
	}
	return res == 1, nil
}

// Release frees a previously acquired slot.
func (l *Limiter) Release(ctx context.Context, scope string) error {
	if _, err := releaseScript.Run(ctx, l.client, []string{l.key(scope)}).Int(); err != nil {
		return fmt.Errorf("concurrency release: %w", err)
	}
	return nil
}

func (l *Limiter) key(scope string) string {
	return fmt.Sprintf("calldispatch:%s:active", scope)
}
