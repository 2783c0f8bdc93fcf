package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter tracks failed login attempts per network origin. Implementations
// must be safe under concurrent access.
type Limiter interface {
	IsBlocked(ctx context.Context, origin string) (bool, error)
	RecordFailure(ctx context.Context, origin string) error
}

type memoryEntry struct {
	count       int
	lastAttempt time.Time
}

// Memory is an in-process limiter. Suitable for single-instance
// deployments only; multi-instance runs need the Redis limiter.
type Memory struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string]*memoryEntry
}

// NewMemory builds an in-process limiter blocking after max failures
// within window.
func NewMemory(max int, window time.Duration) *Memory {
	return &Memory{
		max:     max,
		window:  window,
		entries: make(map[string]*memoryEntry),
	}
}

// IsBlocked reports whether the origin exhausted its failure budget. An
// elapsed window clears the counter.
func (m *Memory) IsBlocked(_ context.Context, origin string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[origin]
	if !ok {
		return false, nil
	}
	if time.Since(entry.lastAttempt) >= m.window {
		delete(m.entries, origin)
		return false, nil
	}
	return entry.count >= m.max, nil
}

// RecordFailure counts one failed attempt for the origin.
func (m *Memory) RecordFailure(_ context.Context, origin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[origin]
	if !ok || time.Since(entry.lastAttempt) >= m.window {
		entry = &memoryEntry{}
		m.entries[origin] = entry
	}
	entry.count++
	entry.lastAttempt = time.Now()
	return nil
}
