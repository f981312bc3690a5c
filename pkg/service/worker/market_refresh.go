package worker

import (
	"context"
	"time"

	"github.com/gridmetrics-lab/derrev/pkg/service/marketcache"
	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
)

// MarketRefreshWorker keeps the rolling-12-month market cache warm in the
// background so interactive estimates never wait on the Data Miner.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - For future horizontal scaling, implement distributed locking or leader election
type MarketRefreshWorker struct {
	cache    *marketcache.Cache
	opts     marketcache.PrefetchOptions
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewMarketRefreshWorker creates a worker that prefetches the feeds selected
// in opts. The Start/End of opts are ignored; every cycle targets the rolling
// 12 full months as of that moment.
func NewMarketRefreshWorker(cache *marketcache.Cache, opts marketcache.PrefetchOptions, interval time.Duration) *MarketRefreshWorker {
	return &MarketRefreshWorker{
		cache:    cache,
		opts:     opts,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background refresh loop
// - Initial warmup and periodic refresh both run in a background goroutine
// - Does not block server startup
func (w *MarketRefreshWorker) Start(ctx context.Context) error {
	logging.Default().Info("market cache refresh worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *MarketRefreshWorker) Stop() {
	logging.Default().Info("market cache refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("market cache refresh worker stopped")
}

func (w *MarketRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.refresh(ctx); err != nil {
		logging.Default().Error("initial market cache refresh failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.refresh(ctx); err != nil {
				// Log error but continue worker
				logging.Default().Error("market cache refresh failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			logging.Default().Info("market cache refresh worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("market cache refresh worker context cancelled")
			return
		}
	}
}

// refresh performs a single prefetch cycle over the current rolling window.
// Months already on disk are skipped by the cache, so steady-state cycles
// fetch at most the month that just completed.
func (w *MarketRefreshWorker) refresh(ctx context.Context) error {
	startTime := time.Now()

	opts := w.opts
	opts.Start, opts.End = marketcache.Rolling12FullMonths(startTime)

	fetched, err := w.cache.Prefetch(ctx, opts)
	if err != nil {
		return err
	}

	logging.Default().Info("market cache refresh completed",
		"fetched_months", fetched,
		"duration", time.Since(startTime).String())
	return nil
}
