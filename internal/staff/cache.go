package staff

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lumahq/luma/internal/authz"
)

const permsVersionKey = "staff:perms:version"

// Cache keeps effective-permission projections in Redis behind a version
// key. Every permission change bumps the version, so stale snapshots stop
// being addressed and fall out via TTL; nothing is deleted explicitly.
// A nil Cache or an unreachable Redis degrades to uncached reads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, permsVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, permsVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *Cache) key(ctx context.Context, staffID uuid.UUID) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("staff:perms:%s:%d", staffID, ver), nil
}

// Fetch returns the cached projection for the staff member. Any Redis or
// decode failure reads as a miss.
func (c *Cache) Fetch(ctx context.Context, staffID uuid.UUID) ([]authz.EffectivePermission, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	key, err := c.key(ctx, staffID)
	if err != nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var perms []authz.EffectivePermission
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

// Store caches the projection under the current version.
func (c *Cache) Store(ctx context.Context, staffID uuid.UUID, perms []authz.EffectivePermission) error {
	if c == nil || c.client == nil {
		return nil
	}
	key, err := c.key(ctx, staffID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate bumps the cache version after a permission change.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, permsVersionKey).Err()
}
