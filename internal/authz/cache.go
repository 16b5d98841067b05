package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores effective permission sets in Redis with a short TTL. A stale
// entry can outlive an override change by at most the TTL, so writers must
// call Resolver.Invalidate on permission mutations.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(userID int64) string {
	return fmt.Sprintf("authz:perms:%d", userID)
}

// Get returns the cached set for the user, if any.
func (c *Cache) Get(ctx context.Context, userID int64) (PermissionSet, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, false
	}
	return NewPermissionSet(names...), true
}

// Put stores the set for the user.
func (c *Cache) Put(ctx context.Context, userID int64, set PermissionSet) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(set.Names())
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(userID), data, c.ttl).Err()
}

// Drop removes the cached set for the user.
func (c *Cache) Drop(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(userID)).Err()
}
