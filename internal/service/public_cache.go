package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PublicViewTTL bounds how stale a cached public view can be.
const PublicViewTTL = 10 * time.Minute

const publicCachePrefix = "prenda:public:"

// PublicCache is a cache-aside store for public views. A nil cache or a nil
// client turns every call into a no-op; Redis errors are logged, never returned.
type PublicCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPublicCache(rdb *redis.Client) *PublicCache {
	return &PublicCache{rdb: rdb, ttl: PublicViewTTL}
}

// DialPublicCache connects to redisURL for processes that run outside the
// API server. When Redis is unset or unreachable the cache is a no-op and
// cached views expire on their own.
func DialPublicCache(redisURL string) (*PublicCache, func()) {
	if redisURL == "" {
		return NewPublicCache(nil), func() {}
	}
	rdb, err := infra.NewRedis(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis no disponible; la caché pública expirará sola")
		return NewPublicCache(nil), func() {}
	}
	return NewPublicCache(rdb), func() { _ = rdb.Close() }
}

func (c *PublicCache) enabled() bool { return c != nil && c.rdb != nil }

func (c *PublicCache) Get(ctx context.Context, docID string) (map[string]any, bool) {
	if !c.enabled() {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, publicCachePrefix+docID).Bytes()
	if err != nil {
		return nil, false
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, false
	}
	return data, true
}

func (c *PublicCache) Set(ctx context.Context, docID string, data map[string]any) {
	if !c.enabled() {
		return
	}
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, publicCachePrefix+docID, b, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("doc_id", docID).Msg("cache: set falló")
	}
}

func (c *PublicCache) Invalidate(ctx context.Context, docIDs ...string) {
	if !c.enabled() || len(docIDs) == 0 {
		return
	}
	keys := make([]string, len(docIDs))
	for i, id := range docIDs {
		keys[i] = publicCachePrefix + id
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Int("keys", len(keys)).Msg("cache: invalidación falló")
	}
}
