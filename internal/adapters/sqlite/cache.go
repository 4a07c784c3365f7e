package sqlite

import (
	"context"
	"fmt"
	"time"

	"cryptoPredictor/internal/domain"
	"cryptoPredictor/internal/ports"
)

// Cache lookup outcomes reported to a CacheObserver.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale" // Upstream failed, stored candles served instead
)

// CacheObserver is notified of every lookup outcome.
type CacheObserver interface {
	ObserveCacheLookup(result string)
}

// CacheConfig tunes a CachedMarketData.
type CacheConfig struct {
	MaxAge time.Duration // Stored series younger than this are served without a fetch
	Retain int           // Candles kept per series after each save
}

// CachedMarketData is a read-through cache in front of another
// ports.MarketData. When upstream fails it serves the stored series.
type CachedMarketData struct {
	upstream ports.MarketData
	repo     *Repository
	logger   ports.Logger
	observer CacheObserver
	cfg      CacheConfig
	now      func() time.Time
}

// NewCachedMarketData wraps upstream with repo. observer may be nil.
func NewCachedMarketData(upstream ports.MarketData, repo *Repository, logger ports.Logger, observer CacheObserver, cfg CacheConfig) (*CachedMarketData, error) {
	if upstream == nil || repo == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for CachedMarketData")
	}
	if cfg.Retain <= 0 {
		cfg.Retain = 2000
	}
	return &CachedMarketData{
		upstream: upstream,
		repo:     repo,
		logger:   logger,
		observer: observer,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// FetchCandles implements ports.MarketData.
func (c *CachedMarketData) FetchCandles(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]*domain.Candle, error) {
	fields := map[string]interface{}{"symbol": symbol, "timeframe": string(timeframe), "limit": limit}

	if c.cfg.MaxAge > 0 {
		if candles, ok := c.fresh(ctx, symbol, timeframe, limit); ok {
			c.observe(CacheHit)
			c.logger.Debug(ctx, "Serving candles from cache", fields)
			return candles, nil
		}
	}

	candles, err := c.upstream.FetchCandles(ctx, symbol, timeframe, limit)
	if err != nil {
		stored, loadErr := c.repo.LoadCandles(ctx, symbol, timeframe, limit)
		if loadErr != nil || len(stored) == 0 {
			return nil, err
		}
		c.observe(CacheStale)
		fields["error"] = err.Error()
		fields["stored"] = len(stored)
		c.logger.Warn(ctx, "Upstream fetch failed, serving stored candles", fields)
		return stored, nil
	}

	c.observe(CacheMiss)
	if err := c.repo.SaveCandles(ctx, symbol, timeframe, candles, c.now()); err != nil {
		c.logger.Error(ctx, err, "Failed to cache candles", fields)
		return candles, nil
	}
	if _, err := c.repo.Prune(ctx, symbol, timeframe, max(c.cfg.Retain, limit)); err != nil {
		c.logger.Warn(ctx, "Failed to prune cached candles", map[string]interface{}{"error": err.Error()})
	}
	return candles, nil
}

// fresh returns the stored series when it was saved within MaxAge and
// holds at least limit candles.
func (c *CachedMarketData) fresh(ctx context.Context, symbol string, timeframe domain.Timeframe, limit int) ([]*domain.Candle, bool) {
	fetchedAt, ok, err := c.repo.LastFetched(ctx, symbol, timeframe)
	if err != nil || !ok || c.now().Sub(fetchedAt) > c.cfg.MaxAge {
		return nil, false
	}
	candles, err := c.repo.LoadCandles(ctx, symbol, timeframe, limit)
	if err != nil || len(candles) < limit {
		return nil, false
	}
	return candles, true
}

func (c *CachedMarketData) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveCacheLookup(result)
	}
}
