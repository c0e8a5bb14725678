package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow admits a request when fewer than ARGV[3] requests were
// recorded in the last ARGV[4] ms. Returns {allowed, remaining}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, ARGV[5])
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	end
	return {0, 0}
`)

// RateLimiter is a sliding-window limit shared by every process pointed at
// the same Redis, so a scheduler and an API instance scanning together still
// respect the bar source's quota.
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
	seq    func() int64
}

// RateLimitConfig defines one source's quota
type RateLimitConfig struct {
	Key    string // source name, e.g. "yahoo", "twse"
	Limit  int    // requests per Window
	Window time.Duration
}

// NewRateLimiter creates a limiter whose keys are "{prefix}:ratelimit:{source}"
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, seq: time.Now().UnixNano}
}

// Allow records a request if the window has room.
// Returns (allowed, remaining, error); always allowed when Redis is disabled.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()

	// member must be unique or two requests in the same ms count once
	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now,
		now-cfg.Window.Milliseconds(),
		cfg.Limit,
		cfg.Window.Milliseconds(),
		r.seq(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("rate limit script: unexpected reply %v", result)
	}
	return result[0] == 1, int(result[1]), nil
}

// Wait blocks until a request is admitted or ctx is done
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	pause := retryInterval(cfg)
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
}

// retryInterval is the average gap between admitted requests, at least 50ms
func retryInterval(cfg RateLimitConfig) time.Duration {
	const floor = 50 * time.Millisecond
	if cfg.Limit <= 0 {
		return cfg.Window
	}
	if d := cfg.Window / time.Duration(cfg.Limit); d > floor {
		return d
	}
	return floor
}

// Shared quotas per bar source
var (
	// Yahoo chart API: 초당 2회 (보수적)
	YahooRateLimit = RateLimitConfig{Key: "yahoo", Limit: 2, Window: time.Second}

	// TWSE STOCK_DAY: 5초에 3회 (차단 회피)
	TWSERateLimit = RateLimitConfig{Key: "twse", Limit: 3, Window: 5 * time.Second}
)

// RateLimitFor returns the shared limit of a bar source
func RateLimitFor(source string) (RateLimitConfig, bool) {
	switch source {
	case YahooRateLimit.Key:
		return YahooRateLimit, true
	case TWSERateLimit.Key:
		return TWSERateLimit, true
	}
	return RateLimitConfig{}, false
}
