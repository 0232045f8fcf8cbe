package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys for operations that must apply at
// most once, such as expiry batches replayed after a restart.
type IdempotencyStore interface {
	// MarkProcessed records the key with a TTL. It reports true when
	// the key is new and false when the operation already ran.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the key was already recorded
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases the underlying backend
	Close() error
}
