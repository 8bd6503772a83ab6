package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newRedisLimiter(t *testing.T, clock *fakeClock) *RedisLimiter {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("skip: miniredis unavailable: %v", err)
	}
	t.Cleanup(srv.Close)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLimiter(rdb, "rl").WithClock(clock.now)
}

func limiters(t *testing.T, clock *fakeClock) map[string]Limiter {
	return map[string]Limiter{
		"memory": NewMemoryLimiter().WithClock(clock.now),
		"redis":  newRedisLimiter(t, clock),
	}
}

func TestFixedWindow(t *testing.T) {
	rule := Rule{Window: 1000 * time.Millisecond, Max: 3}
	for name := range map[string]struct{}{"memory": {}, "redis": {}} {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
			l := limiters(t, clock)[name]
			ctx := context.Background()

			var got []bool
			for i := 0; i < 4; i++ {
				d, err := l.Allow(ctx, "10.0.0.1:/v1/approach-requests", rule)
				require.NoError(t, err)
				got = append(got, d.Allowed)
				clock.advance(100 * time.Millisecond)
			}
			assert.Equal(t, []bool{true, true, true, false}, got)

			d, err := l.Allow(ctx, "10.0.0.1:/v1/approach-requests", rule)
			require.NoError(t, err)
			assert.False(t, d.Allowed)
			assert.Greater(t, d.RetryAfter, time.Duration(0))

			clock.advance(time.Second)
			d, err = l.Allow(ctx, "10.0.0.1:/v1/approach-requests", rule)
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, 2, d.Remaining)
		})
	}
}

func TestKeysAreIndependent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewMemoryLimiter().WithClock(clock.now)
	rule := Rule{Window: time.Minute, Max: 1}
	ctx := context.Background()

	d, _ := l.Allow(ctx, "a:/login", rule)
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "b:/login", rule)
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "a:/register", rule)
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "a:/login", rule)
	assert.False(t, d.Allowed)
}

func TestMemoryLimiterConcurrentCallsNeverExceedMax(t *testing.T) {
	l := NewMemoryLimiter()
	rule := Rule{Window: time.Hour, Max: 50}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := l.Allow(context.Background(), "k", rule)
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMemoryLimiterSweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewMemoryLimiter().WithClock(clock.now)
	_, _ = l.Allow(context.Background(), "a", Rule{Window: time.Second, Max: 1})
	_, _ = l.Allow(context.Background(), "b", Rule{Window: time.Hour, Max: 1})
	clock.advance(2 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}
