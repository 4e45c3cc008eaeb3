package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NameCacheTTL bounds how long a renamed user may show the old name.
const NameCacheTTL = 10 * time.Minute

const nameCachePrefix = "cache:user:name:"

// CacheStore caches directory lookups in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetName returns the cached display name of a user. The boolean is false on a cache miss.
func (s *CacheStore) GetName(ctx context.Context, userID string) (string, bool, error) {
	name, err := s.client.Get(ctx, nameCachePrefix+userID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil // Cache miss
		}
		return "", false, err
	}
	return name, true, nil
}

// SetName stores the display name of a user.
func (s *CacheStore) SetName(ctx context.Context, userID, name string) error {
	return s.client.Set(ctx, nameCachePrefix+userID, name, NameCacheTTL).Err()
}
