package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/AlienServices/unfurl/internal/ratelimit"
	"github.com/redis/go-redis/v9"
)

// fixedWindow counts a request unless the window is full.
// KEYS[1] counter, ARGV[1] limit, ARGV[2] window in ms.
// Returns {allowed, count, pttl}.
var fixedWindow = redis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= tonumber(ARGV[1]) then
  return {0, count, redis.call("PTTL", KEYS[1])}
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
  ttl = tonumber(ARGV[2])
end
return {1, count, ttl}
`)

// Limiter is a ratelimit.Limiter shared by every instance using the same
// Redis. Windows are fixed and start with the first request of a client.
type Limiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(client redis.Scripter, limit int, window time.Duration) *Limiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{client: client, limit: limit, window: window, now: time.Now}
}

func (l *Limiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	res, err := fixedWindow.Run(ctx, l.client, []string{RateKey(key)}, l.limit, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}
	if len(res) != 3 {
		return ratelimit.Decision{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	allowed, count, pttl := res[0] == 1, int(res[1]), res[2]
	if pttl < 0 {
		pttl = l.window.Milliseconds()
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return ratelimit.Decision{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   l.now().Add(time.Duration(pttl) * time.Millisecond),
	}, nil
}
