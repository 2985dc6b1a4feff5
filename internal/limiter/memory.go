package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxMemoryEntries bounds the map before idle entries are pruned.
const maxMemoryEntries = 10000

// Memory is a process-local limiter built on token buckets: maxFails failures
// inside window exhaust the bucket and block the key for blockFor.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*memEntry
	every    rate.Limit
	maxFails int
	blockFor time.Duration
	now      func() time.Time
}

type memEntry struct {
	bucket       *rate.Limiter
	blockedUntil time.Time
}

// NewMemory constructs an in-process limiter.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	if maxFails <= 0 {
		maxFails = 1
	}
	return &Memory{
		entries:  make(map[string]*memEntry),
		every:    rate.Every(window / time.Duration(maxFails)),
		maxFails: maxFails,
		blockFor: blockFor,
		now:      time.Now,
	}
}

// Allow reports whether key is currently unblocked.
func (m *Memory) Allow(_ context.Context, key []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[string(key)]
	if !ok {
		return true, 0, nil
	}
	now := m.now()
	if e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success forgets key.
func (m *Memory) Success(_ context.Context, key []byte) error {
	m.mu.Lock()
	delete(m.entries, string(key))
	m.mu.Unlock()
	return nil
}

// Failure spends one token from key's bucket and blocks when the bucket is empty.
func (m *Memory) Failure(_ context.Context, key []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[string(key)]
	if !ok {
		if len(m.entries) >= maxMemoryEntries {
			m.pruneLocked(now)
		}
		e = &memEntry{bucket: rate.NewLimiter(m.every, m.maxFails)}
		m.entries[string(key)] = e
	}

	allowed := e.bucket.AllowN(now, 1)
	if !allowed || e.bucket.TokensAt(now) < 1 {
		e.blockedUntil = now.Add(m.blockFor)
		return true, m.blockFor, nil
	}
	return false, 0, nil
}

// pruneLocked drops entries that are not blocked and whose bucket has refilled.
func (m *Memory) pruneLocked(now time.Time) {
	for k, e := range m.entries {
		if !e.blockedUntil.After(now) && e.bucket.TokensAt(now) >= float64(m.maxFails) {
			delete(m.entries, k)
		}
	}
}
