// Package ratelimit implements the fixed-window request counter used by the
// rate limiting middleware.  The counter storage is pluggable: MemoryLimiter
// serves a single process, RedisLimiter shares counters between instances.
package ratelimit

import (
	"context"
	"time"
)

// Rule is a window length and the number of requests allowed in it.
type Rule struct {
	Window time.Duration
	Max    int
}

// Decision is the outcome of a single check-and-increment.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// Limiter counts a request against key and reports whether it fits in the
// current window.  Implementations must make the read-check-increment
// sequence atomic per key.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
}
