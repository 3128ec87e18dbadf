package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys so a replayed write is rejected
// instead of being applied twice.
type IdempotencyStore interface {
	// Claim marks key as in use for ttl.
	// Returns true if the key was newly claimed, false if it was already taken.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release forgets key so the request can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a claimed key blocks replays. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency keys are honoured. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
