package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript applies the same rule as MemoryLimiter inside Redis so
// concurrent instances cannot race between the read and the increment.
var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

local state = redis.call('HMGET', key, 'count', 'reset_ms')
local count = tonumber(state[1])
local reset_ms = tonumber(state[2])

if count == nil or reset_ms == nil or now_ms > reset_ms then
    reset_ms = now_ms + window_ms
    redis.call('HSET', key, 'count', 1, 'reset_ms', reset_ms)
    redis.call('PEXPIRE', key, window_ms + 1000)
    return { 1, max - 1, 0 }
end

if count >= max then
    return { 0, 0, reset_ms - now_ms }
end

count = redis.call('HINCRBY', key, 'count', 1)
return { 1, max - count, 0 }
`)

// RedisLimiter stores counters in Redis hashes named <prefix>:<key>.
type RedisLimiter struct {
	rdb    redis.Scripter
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb redis.Scripter, prefix string) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (r *RedisLimiter) WithClock(now func() time.Time) *RedisLimiter {
	r.now = now
	return r
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	res, err := fixedWindowScript.Run(ctx, r.rdb, []string{r.prefix + ":" + key},
		r.now().UnixMilli(), rule.Window.Milliseconds(), rule.Max).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected result %#v", res)
	}
	return Decision{
		Allowed:    asInt64(arr[0]) == 1,
		Remaining:  int(asInt64(arr[1])),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
