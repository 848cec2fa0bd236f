package stats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds recently computed campaign figures in Redis so dashboard
// polling does not re-scan leads and call logs on every refresh.
//
// Best-effort only: a cache miss or Redis error falls through to a live
// computation. TTLs are short; stats staleness is bounded by CacheTTL.

const DefaultCacheTTL = 15 * time.Second

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(campaignID string) string {
	return "stats:campaign:" + campaignID
}

func (c *Cache) Get(ctx context.Context, campaignID string) (CampaignStats, bool) {
	if c == nil || c.rdb == nil {
		return CampaignStats{}, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(campaignID)).Bytes()
	if err != nil {
		return CampaignStats{}, false
	}
	var out CampaignStats
	if err := json.Unmarshal(raw, &out); err != nil {
		return CampaignStats{}, false
	}
	return out, true
}

func (c *Cache) Set(ctx context.Context, s CampaignStats) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, cacheKey(s.CampaignID), raw, c.ttl).Err()
}

// Invalidate drops the cached figures for a campaign, e.g. after a terminal
// call outcome lands.
func (c *Cache) Invalidate(ctx context.Context, campaignID string) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, cacheKey(campaignID)).Err()
}
