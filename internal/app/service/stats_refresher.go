package service

import (
	"context"
	"time"

	"github.com/velichkin/shorty/internal/app/repository"
	"go.uber.org/zap"
)

// StatsRefresher periodically re-fetches click counts for the most recently
// created links and rewrites the cache, keeping dashboard numbers warm
// between listings.
type StatsRefresher struct {
	logger   *zap.Logger
	links    repository.LinkRepository
	provider ProviderClient
	cache    StatsCache
	batch    int
	interval time.Duration
	stopChan chan struct{}
}

// NewStatsRefresher creates a new stats refresher covering the given number
// of recent links per cycle.
func NewStatsRefresher(logger *zap.Logger, links repository.LinkRepository, provider ProviderClient, cache StatsCache, batch int) *StatsRefresher {
	if batch <= 0 {
		batch = 100
	}
	return &StatsRefresher{
		logger:   logger,
		links:    links,
		provider: provider,
		cache:    cache,
		batch:    batch,
		interval: 5 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic refresh loop.
func (r *StatsRefresher) Start() {
	go r.run()
}

// Stop stops the periodic refresh loop.
func (r *StatsRefresher) Stop() {
	close(r.stopChan)
}

func (r *StatsRefresher) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.refreshRecent()
		case <-r.stopChan:
			r.logger.Info("stats refresher stopped")
			return
		}
	}
}

func (r *StatsRefresher) refreshRecent() {
	ctx := context.Background()

	links, err := r.links.ListRecent(ctx, r.batch)
	if err != nil {
		r.logger.Error("failed to list recent links", zap.Error(err))
		return
	}

	refreshed := 0
	for _, link := range links {
		clicks, err := r.provider.LinkStats(ctx, link.ProviderLinkID)
		if err != nil {
			r.logger.Warn("failed to refresh link statistics",
				zap.String("link_id", link.ID),
				zap.Error(err))
			continue
		}
		r.cache.Set(ctx, link.ProviderLinkID, clicks)
		refreshed++
	}

	if refreshed > 0 {
		r.logger.Debug("refreshed cached link statistics", zap.Int("count", refreshed))
	}
}
