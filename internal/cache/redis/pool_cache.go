package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prediction-pool/internal/notify"
	"prediction-pool/internal/pool"

	"github.com/redis/go-redis/v9"
)

const defaultPoolTTL = 5 * time.Second

// PoolCache holds pool records in their fixed-width binary form under a short TTL.
// Writers invalidate through the notify pipeline, so a cached record can lag a commit by
// at most the TTL.
type PoolCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPoolCache(c *Client, ttl time.Duration) *PoolCache {
	if ttl <= 0 {
		ttl = defaultPoolTTL
	}
	return &PoolCache{rdb: c.Underlying(), ttl: ttl}
}

func poolCacheKey(poolID uint64) string {
	return "cache:" + string(pool.PoolKey(poolID))
}

// Get reports ok=false on a miss.
func (pc *PoolCache) Get(ctx context.Context, poolID uint64) (pool.Pool, bool, error) {
	b, err := pc.rdb.Get(ctx, poolCacheKey(poolID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return pool.Pool{}, false, nil
	}
	if err != nil {
		return pool.Pool{}, false, fmt.Errorf("redis: get pool %d: %w", poolID, err)
	}
	var p pool.Pool
	if err := p.UnmarshalBinary(b); err != nil {
		_ = pc.rdb.Del(ctx, poolCacheKey(poolID)).Err()
		return pool.Pool{}, false, nil
	}
	return p, true, nil
}

func (pc *PoolCache) Set(ctx context.Context, p pool.Pool) error {
	b, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	if err := pc.rdb.Set(ctx, poolCacheKey(p.PoolID), b, pc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set pool %d: %w", p.PoolID, err)
	}
	return nil
}

func (pc *PoolCache) Invalidate(ctx context.Context, poolID uint64) error {
	return pc.rdb.Del(ctx, poolCacheKey(poolID)).Err()
}

// Invalidator drops the cached pool whenever an event for it commits.
type Invalidator struct {
	Cache *PoolCache
}

func (Invalidator) Name() string { return "cache" }

func (i Invalidator) Send(ctx context.Context, env notify.Envelope) error {
	return i.Cache.Invalidate(ctx, env.PoolID)
}

var _ notify.Sink = Invalidator{}
