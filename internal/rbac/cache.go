package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "rbac:catalog:version"

// Cache keeps role capability snapshots in Redis. Keys embed a catalog
// version so Bump invalidates every snapshot at once. A nil Cache, or one
// without a client, always misses.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current catalog version, initialising it when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *Cache) roleKey(ctx context.Context, roleID uuid.UUID) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rbac:role:%s:caps:%d", roleID, ver), nil
}

// RoleCapabilities returns the cached capability names of a role. The bool
// is false on a miss.
func (c *Cache) RoleCapabilities(ctx context.Context, roleID uuid.UUID) ([]string, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	key, err := c.roleKey(ctx, roleID)
	if err != nil {
		return nil, false, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var names []string
	if err := json.Unmarshal(payload, &names); err != nil {
		return nil, false, err
	}
	return names, true, nil
}

// StoreRoleCapabilities caches names for roleID.
func (c *Cache) StoreRoleCapabilities(ctx context.Context, roleID uuid.UUID, names []string) error {
	if !c.enabled() {
		return nil
	}
	key, err := c.roleKey(ctx, roleID)
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates all snapshots by moving to the next catalog version.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
