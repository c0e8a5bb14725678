package cached

import (
	"context"
	"time"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/pkg/logger"
	"github.com/wonny/twscan/pkg/redis"
)

// Fetcher caches another fetcher's bars in Redis for one day.
// With Redis disabled it is a passthrough.
type Fetcher struct {
	next   contracts.BarFetcher
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// New wraps next
func New(next contracts.BarFetcher, cache *redis.Cache, log *logger.Logger) *Fetcher {
	return &Fetcher{
		next:   next,
		cache:  cache,
		ttl:    redis.TTLBars,
		logger: log.WithModule("bar_cache"),
	}
}

// Name reports the wrapped source so cache hits and misses share metrics labels
func (f *Fetcher) Name() string { return f.next.Name() }

// FetchBars implements contracts.BarFetcher
func (f *Fetcher) FetchBars(ctx context.Context, code string, from, to time.Time) ([]contracts.RawBar, error) {
	if !f.cache.Enabled() {
		return f.next.FetchBars(ctx, code, from, to)
	}

	key := redis.BarsKey(f.next.Name(), code, from, to)

	var bars []contracts.RawBar
	found, err := f.cache.Get(ctx, key, &bars)
	if err != nil {
		f.logger.WithError(err).WithStock(code).Warn("Bar cache read failed")
	}
	if found {
		return bars, nil
	}

	bars, err = f.next.FetchBars(ctx, code, from, to)
	if err != nil {
		return nil, err
	}

	// empty answers are not cached; the source may simply be late
	if len(bars) > 0 {
		if err := f.cache.Set(ctx, key, bars, f.ttl); err != nil {
			f.logger.WithError(err).WithStock(code).Warn("Bar cache write failed")
		}
	}
	return bars, nil
}
