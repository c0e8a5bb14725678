package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values under "{prefix}:cache:{key}". A nil or disabled
// Cache misses on every Get and drops every Set.
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a cache over client
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

// Enabled reports whether reads and writes reach Redis
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil && c.client.Enabled()
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A missing key is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores value as JSON for ttl
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// TTLs per cached payload
const (
	// bar keys embed the window end date, so a day covers every rerun of that day
	TTLBars = 24 * time.Hour
	// the latest report outlives a long weekend without a run
	TTLReport = 4 * 24 * time.Hour
)

// BarsKey identifies one retrieval window of daily bars
func BarsKey(source, code string, from, to time.Time) string {
	return fmt.Sprintf("bars:%s:%s:%s:%s", source, code, from.Format("20060102"), to.Format("20060102"))
}

// LatestReportKey holds the last finished scan
func LatestReportKey() string {
	return "report:latest"
}
