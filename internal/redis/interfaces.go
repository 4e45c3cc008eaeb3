package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireTripLock(ctx context.Context, tripID, token string, ttl time.Duration) (bool, error)
	ReleaseTripLock(ctx context.Context, tripID, token string) error
}

// NameCacheInterface defines the interface for the display-name cache.
type NameCacheInterface interface {
	GetName(ctx context.Context, userID string) (string, bool, error)
	SetName(ctx context.Context, userID, name string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface = (*LockStore)(nil)
	_ NameCacheInterface = (*CacheStore)(nil)
)
