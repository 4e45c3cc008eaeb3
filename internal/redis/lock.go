package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when releasing a lock that expired or belongs to another holder.
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireTripLock attempts to acquire the lock for the given trip.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireTripLock(ctx context.Context, tripID, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, tripLockKey(tripID), token, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseTripLock releases the lock for the given trip if token still owns it.
func (s *LockStore) ReleaseTripLock(ctx context.Context, tripID, token string) error {
	n, err := releaseScript.Run(ctx, s.client, []string{tripLockKey(tripID)}, token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func tripLockKey(tripID string) string {
	return fmt.Sprintf("lock:trip:%s", tripID)
}
