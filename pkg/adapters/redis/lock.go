package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/tubelife/pkg/ports"
)

// ErrLockAcquire is returned when Redis refuses the lock command.
var ErrLockAcquire = errors.New("failed to acquire distributed lock")

// DefaultLockRetry is how often a contended lock is polled.
const DefaultLockRetry = 100 * time.Millisecond

// releaseScript deletes the key only while it still holds the caller's token,
// so a holder whose TTL expired cannot release a newer owner's lock.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker serializes library writes across replicas with SET NX PX.
type Locker struct {
	client *backend.Client
	prefix string
	retry  time.Duration
}

// NewLocker returns a locker whose keys are prefix + "lock:" + name.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix, retry: DefaultLockRetry}
}

// WithRetry changes the polling interval and returns l.
func (l *Locker) WithRetry(d time.Duration) *Locker {
	if d > 0 {
		l.retry = d
	}
	return l
}

func (l *Locker) key(name string) string {
	return l.prefix + "lock:" + name
}

// Lock blocks until the lock on name is held or ctx ends.
func (l *Locker) Lock(ctx context.Context, name string, ttl time.Duration) (ports.UnlockFunc, error) {
	key := l.key(name)
	token := uuid.NewString()

	for {
		acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			return nil, fmt.Errorf("%w: %v", ErrLockAcquire, err)
		case acquired:
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
