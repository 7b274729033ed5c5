package forecast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"

	"github.com/kilianp07/fleetcast/core/artifact"
	"github.com/kilianp07/fleetcast/core/model"
)

// Cached memoizes monthly forecasts. Keys include the bundle generation so a
// reload never serves results computed from the previous artifacts, even when
// the new bundle reuses the same version string. Cached
// results are shared and must be treated as read-only.
type Cached struct {
	next  Forecaster
	src   artifact.Source
	cache gcache.Cache
}

// NewCached wraps next with an LRU of size entries expiring after ttl.
// A non-positive ttl disables expiry.
func NewCached(next Forecaster, src artifact.Source, size int, ttl time.Duration) *Cached {
	if size < 1 {
		size = 1
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &Cached{next: next, src: src, cache: b.Build()}
}

func cacheKey(generation uint64, anchor model.Period, horizon int, entity string) string {
	return fmt.Sprintf("%d|%s|%d|%s", generation, anchor.Key(), horizon, strings.ToLower(strings.TrimSpace(entity)))
}

// Forecast returns a cached result or computes and stores it.
func (c *Cached) Forecast(ctx context.Context, anchor model.Period, horizon int, entity string) (*model.ForecastResult, error) {
	b := c.src.Current()
	if b == nil {
		return c.next.Forecast(ctx, anchor, horizon, entity)
	}
	key := cacheKey(b.Generation, anchor, horizon, entity)
	if v, err := c.cache.Get(key); err == nil {
		return v.(*model.ForecastResult), nil
	}
	res, err := c.next.Forecast(ctx, anchor, horizon, entity)
	if err != nil {
		return nil, err
	}
	// A concurrent reload may have computed res from a newer bundle; the key
	// of the older generation is never read again, so storing it is harmless.
	_ = c.cache.Set(key, res)
	return res, nil
}

// Predict shares the cache with one-period forecasts.
func (c *Cached) Predict(ctx context.Context, period model.Period, entity string) (*model.ForecastResult, error) {
	return c.Forecast(ctx, period, 1, entity)
}

// ForecastDays is not cached.
func (c *Cached) ForecastDays(ctx context.Context, start time.Time, days int, entity string) ([]model.DayForecast, error) {
	return c.next.ForecastDays(ctx, start, days, entity)
}

// Len returns the number of cached entries.
func (c *Cached) Len() int { return c.cache.Len(false) }
