package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"flock/pkg/platform/sentinel"
)

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was re-acquired elsewhere is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockHeld is returned when another holder owns the lock. It matches
// sentinel.ErrConflict.
var ErrLockHeld = fmt.Errorf("lock held by another process: %w", sentinel.ErrConflict)

// Locker hands out short-lived mutual-exclusion leases keyed by name.
type Locker struct {
	client redis.UniversalClient
	prefix string
}

// NewLocker builds a Locker over client; keys are namespaced by prefix.
func NewLocker(client redis.UniversalClient, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// Acquire takes the lock for ttl. The returned release func is safe to call
// after expiry.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	fullKey := l.prefix + key
	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", fullKey, err)
		}
		return nil
	}, nil
}
