package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps counters in a process-local map.  Entries are only
// replaced when their window rolls over; call Sweep periodically to drop
// stale keys.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{entries: make(map[string]*window), now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (m *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	m.now = now
	return m
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, rule Rule) (Decision, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.entries[key]
	if !ok || now.After(w.resetAt) {
		m.entries[key] = &window{count: 1, resetAt: now.Add(rule.Window)}
		return Decision{Allowed: true, Remaining: rule.Max - 1}, nil
	}
	if w.count >= rule.Max {
		return Decision{Allowed: false, RetryAfter: w.resetAt.Sub(now)}, nil
	}
	w.count++
	return Decision{Allowed: true, Remaining: rule.Max - w.count}, nil
}

// Sweep removes every entry whose window has elapsed and returns how many
// were dropped.
func (m *MemoryLimiter) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, w := range m.entries {
		if now.After(w.resetAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len reports the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
