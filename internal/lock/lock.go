package lock

import (
	"context"
	"time"
)

// Locker is a time-boxed mutual-exclusion token keyed by resource id,
// valid across service instances. The TTL is the crash-safety fallback:
// it must exceed the worst-case critical section with margin.
type Locker interface {
	// Acquire is an atomic set-if-not-exists with expiry. It returns false
	// (not an error) when another holder owns the key. An error means the
	// lock state could not be determined; callers must refuse to proceed.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release deletes the lock. Best-effort and idempotent: releasing a key
	// that already expired is not an error.
	Release(ctx context.Context, key string) error
}
