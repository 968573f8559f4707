package staff

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const permissionCacheTTL = 5 * time.Minute

// PermissionSource returns the granted permission set for one admin profile
type PermissionSource interface {
	ListForAdmin(ctx context.Context, adminProfileID uuid.UUID) ([]*Permission, error)
}

// PermissionCache caches granted permission sets in Redis. All methods are
// nil-safe and best-effort: a cache failure degrades to a storage lookup,
// never to a denied or allowed request.
type PermissionCache struct {
	client *redis.Client
}

// NewPermissionCache creates the cache; client may be nil
func NewPermissionCache(client *redis.Client) *PermissionCache {
	return &PermissionCache{client: client}
}

func cacheKey(adminProfileID uuid.UUID) string {
	return "staff:perms:" + adminProfileID.String()
}

// Get returns the cached permission set, if present
func (c *PermissionCache) Get(ctx context.Context, adminProfileID uuid.UUID) ([]*Permission, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, cacheKey(adminProfileID)).Bytes()
	if err != nil {
		return nil, false
	}
	var perms []*Permission
	if err := json.Unmarshal(data, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

// Set stores the permission set
func (c *PermissionCache) Set(ctx context.Context, adminProfileID uuid.UUID, perms []*Permission) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(perms)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(adminProfileID), data, permissionCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("admin_profile_id", adminProfileID.String()).Msg("Failed to cache permission set")
	}
}

// Invalidate drops the cached set after any assignment or profile mutation
func (c *PermissionCache) Invalidate(ctx context.Context, adminProfileID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(adminProfileID)).Err(); err != nil {
		log.Warn().Err(err).Str("admin_profile_id", adminProfileID.String()).Msg("Failed to invalidate permission cache")
	}
}

// CachedPermissions is a PermissionSource that reads through the cache
type CachedPermissions struct {
	source PermissionSource
	cache  *PermissionCache
}

// NewCachedPermissions wraps a PermissionSource with the Redis cache
func NewCachedPermissions(source PermissionSource, cache *PermissionCache) *CachedPermissions {
	return &CachedPermissions{source: source, cache: cache}
}

func (s *CachedPermissions) ListForAdmin(ctx context.Context, adminProfileID uuid.UUID) ([]*Permission, error) {
	if perms, ok := s.cache.Get(ctx, adminProfileID); ok {
		return perms, nil
	}
	perms, err := s.source.ListForAdmin(ctx, adminProfileID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, adminProfileID, perms)
	return perms, nil
}
