package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps a rolling log of request timestamps per key. Every call is
// recorded, so a client that keeps retrying while blocked stays blocked.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string][]time.Time
	calls   int
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	limit, window = normalize(limit, window)
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string][]time.Time),
	}
}

// WithClock replaces the time source. Tests only.
func (m *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	m.now = now
	return m
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()
	cutoff := now.Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := inWindow(m.entries[key], cutoff)
	allowed := len(recent) < m.limit
	m.entries[key] = append(recent, now)

	m.calls++
	if m.calls%1000 == 0 {
		m.prune(cutoff)
	}

	return allowed, nil
}

// Len reports how many keys are tracked.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Prune drops keys with no timestamps inside the window.
func (m *MemoryLimiter) Prune() {
	cutoff := m.now().Add(-m.window)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune(cutoff)
}

func (m *MemoryLimiter) prune(cutoff time.Time) {
	for key, stamps := range m.entries {
		recent := inWindow(stamps, cutoff)
		if len(recent) == 0 {
			delete(m.entries, key)
			continue
		}
		m.entries[key] = recent
	}
}

// inWindow returns the suffix of stamps newer than cutoff; stamps are in call order.
func inWindow(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
