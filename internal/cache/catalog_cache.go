package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const versionKey = "catalog:version"

// CatalogCache stores catalog query results in Redis under a version number.
// Invalidate bumps the version, which orphans every stored entry at once; the
// orphans expire through their TTL. All failures degrade to cache misses.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		ttl:    ttl,
	}
}

// Get looks the fingerprint up under the current version and returns that version
// for the matching Set. The version is negative when it could not be read.
func (c *CatalogCache) Get(ctx context.Context, fingerprint string) ([]byte, int64, bool) {
	version, err := c.version(ctx)
	if err != nil {
		return nil, -1, false
	}

	payload, err := c.client.Get(ctx, EntryKey(version, fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, false
	}
	if err != nil {
		logger.Warn("Catalog cache read failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, version, false
	}
	return payload, version, true
}

// Set stores payload under the version the result was computed against. A result
// computed before an Invalidate lands under the old version and is never served.
func (c *CatalogCache) Set(ctx context.Context, version int64, fingerprint string, payload []byte) {
	if version < 0 {
		return
	}

	if err := c.client.Set(ctx, EntryKey(version, fingerprint), payload, c.ttl).Err(); err != nil {
		logger.Warn("Catalog cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (c *CatalogCache) Invalidate(ctx context.Context) {
	version, err := c.client.Incr(ctx, versionKey).Result()
	if err != nil {
		logger.Error("Failed to invalidate catalog cache", err)
		return
	}
	logger.Debug("Catalog cache invalidated", map[string]interface{}{
		"version": version,
	})
}

func (c *CatalogCache) version(ctx context.Context) (int64, error) {
	version, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		logger.Warn("Catalog cache version lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}
	return version, nil
}

// EntryKey hashes the fingerprint so keys stay short whatever the filter size
func EntryKey(version int64, fingerprint string) string {
	return fmt.Sprintf("catalog:v%d:facets:%016x", version, xxhash.Sum64String(fingerprint))
}
