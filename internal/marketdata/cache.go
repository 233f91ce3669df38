package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultFreshness is the wall-clock window during which a cached snapshot
// is served without hitting the upstream provider.
const DefaultFreshness = 60 * time.Second

// Upstream retrieves the three independent market datasets. The calls have
// no ordering dependency and are issued concurrently per refresh.
type Upstream interface {
	FetchPrice(ctx context.Context) (PriceQuote, error)
	FetchExchangeRate(ctx context.Context) (float64, error)
	FetchChart(ctx context.Context, days int) ([]ChartPoint, error)
}

// CacheOptions tune cache behaviour.
type CacheOptions struct {
	Freshness time.Duration
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

type cacheEntry struct {
	snapshot  Snapshot
	timeframe Timeframe
	fetchedAt time.Time
}

// Cache serves a merged market snapshot, refreshing from the upstream only
// when the stored entry is stale or was fetched for a different timeframe.
//
// Concurrent callers that both observe a stale entry each perform their own
// upstream refresh; the commits are idempotent overwrites of the same slot,
// so last-writer-wins. A failed refresh never touches the stored entry.
type Cache struct {
	upstream  Upstream
	freshness time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	mu    sync.Mutex
	entry *cacheEntry
}

// NewCache constructs a Cache around the given upstream.
func NewCache(upstream Upstream, opts CacheOptions, logger zerolog.Logger) *Cache {
	freshness := opts.Freshness
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		upstream:  upstream,
		freshness: freshness,
		now:       now,
		logger:    logger.With().Str("component", "market_cache").Logger(),
	}
}

// Snapshot returns the cached snapshot when fresh, otherwise performs a full
// aggregate refresh. Partial upstream results are never committed.
func (c *Cache) Snapshot(ctx context.Context, timeframe Timeframe) (Snapshot, error) {
	now := c.now()

	c.mu.Lock()
	if c.entry != nil && c.entry.timeframe == timeframe && now.Sub(c.entry.fetchedAt) < c.freshness {
		snapshot := c.entry.snapshot
		c.mu.Unlock()
		return snapshot, nil
	}
	c.mu.Unlock()

	snapshot, err := c.refresh(ctx, timeframe)
	if err != nil {
		c.logger.Error().Err(err).Int("timeframe_days", timeframe.Days()).Msg("aggregate refresh failed")
		return Snapshot{}, err
	}

	c.mu.Lock()
	c.entry = &cacheEntry{snapshot: snapshot, timeframe: timeframe, fetchedAt: c.now()}
	c.mu.Unlock()

	c.logger.Debug().Int("timeframe_days", timeframe.Days()).
		Int("candles", len(snapshot.ChartData)).Msg("snapshot refreshed")
	return snapshot, nil
}

// refresh fans out the three sub-fetches and joins them; any failure aborts
// the whole refresh.
func (c *Cache) refresh(ctx context.Context, timeframe Timeframe) (Snapshot, error) {
	var (
		quote PriceQuote
		rate  float64
		chart []ChartPoint
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quote, err = c.upstream.FetchPrice(ctx)
		if err != nil {
			return fmt.Errorf("fetch price: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rate, err = c.upstream.FetchExchangeRate(ctx)
		if err != nil {
			return fmt.Errorf("fetch exchange rate: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		chart, err = c.upstream.FetchChart(ctx, timeframe.Days())
		if err != nil {
			return fmt.Errorf("fetch chart: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{BTCPrice: quote, AUDRate: rate, ChartData: chart}, nil
}
