package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes writes to one library entry across processes.
type DistributedLocker interface {
	// Lock blocks until the lock on name is held or ctx ends. The lock
	// expires after ttl even if the holder never calls the returned UnlockFunc.
	Lock(ctx context.Context, name string, ttl time.Duration) (UnlockFunc, error)
}
