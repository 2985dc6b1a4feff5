// Package limiter throttles repeated failed token lookups from one client.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter controls token lookup attempts and temporary lockouts per client key.
type Limiter interface {
	// Allow reports whether a lookup is currently allowed and optional retry-after.
	Allow(ctx context.Context, key []byte) (bool, time.Duration, error)
	// Success resets counters after a successful lookup.
	Success(ctx context.Context, key []byte) error
	// Failure records a failed lookup; may place a temporary block.
	Failure(ctx context.Context, key []byte) (bool, time.Duration, error)
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}
