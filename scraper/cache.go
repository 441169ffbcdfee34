package scraper

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"pricemonitor/services"
)

// Cache shares scrape results between products tracking the same URL, so a
// listing five users watch is fetched once per window, not five times. The
// periodic cycle and manual refreshes bypass it; only submit-time initial
// scrapes read from it. A nil Redis client disables caching entirely.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(url string) string {
	return "scrape:" + url
}

func (c *Cache) Get(ctx context.Context, url string) (*services.Observation, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, cacheKey(url)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("Warning: scrape cache read: %v", err)
		return nil, false
	}

	var obs services.Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return nil, false
	}
	return &obs, true
}

func (c *Cache) Set(ctx context.Context, url string, obs *services.Observation) {
	if c == nil || c.rdb == nil || obs == nil {
		return
	}

	data, err := json.Marshal(obs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(url), data, c.ttl).Err(); err != nil {
		log.Printf("Warning: scrape cache write: %v", err)
	}
}
