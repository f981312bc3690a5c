package marketcache

import (
	"context"
	"math/rand"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
)

// PrefetchOptions selects which feeds to warm for a window
type PrefetchOptions struct {
	Start time.Time
	End   time.Time // exclusive

	Regulation bool

	EnergyMarket *types.Market
	Zone         string
	PnodeID      int64

	ReservesMarket *types.Market
	Area           string
	Products       []string

	// Force refetches months that are already on disk
	Force bool
}

// DefaultReserveProducts are the ancillary products prefetched when none are
// given.
var DefaultReserveProducts = []string{
	"SYNCH_RESERVE", "NONSPIN_RESERVE", "PRIMARY_RESERVE", "SUPPLEMENTAL",
}

// Prefetch warms month files for the selected feeds. Months are fetched with
// bounded concurrency and a small jitter between requests to stay under the
// Data Miner rate limits. Already-cached months are skipped unless Force is
// set. Returns the number of months fetched.
func (x *Cache) Prefetch(ctx context.Context, opts PrefetchOptions) (int, error) {
	logger := logging.From(ctx)

	type job struct {
		ym    YearMonth
		path  string
		fetch func(context.Context, YearMonth) (int, error)
	}
	var jobs []job

	months := MonthsInWindow(opts.Start, opts.End)

	if opts.Regulation {
		dir := x.feedDir("regulation")
		for _, ym := range months {
			jobs = append(jobs, job{ym: ym, path: monthPath(dir, ym.Year, ym.Month),
				fetch: func(ctx context.Context, ym YearMonth) (int, error) {
					rows, err := x.FetchRegulationMonth(ctx, ym.Year, ym.Month)
					return len(rows), err
				}})
		}
	}

	if opts.EnergyMarket != nil {
		market := *opts.EnergyMarket
		dir := x.energyDir(market)
		for _, ym := range months {
			jobs = append(jobs, job{ym: ym, path: monthPath(dir, ym.Year, ym.Month),
				fetch: func(ctx context.Context, ym YearMonth) (int, error) {
					rows, err := x.FetchEnergyMonth(ctx, market, opts.Zone, opts.PnodeID, ym.Year, ym.Month)
					return len(rows), err
				}})
		}
	}

	if opts.ReservesMarket != nil {
		market := *opts.ReservesMarket
		products := opts.Products
		if len(products) == 0 {
			products = DefaultReserveProducts
		}
		for _, product := range products {
			dir := x.reservesDir(market, product)
			for _, ym := range months {
				jobs = append(jobs, job{ym: ym, path: monthPath(dir, ym.Year, ym.Month),
					fetch: func(ctx context.Context, ym YearMonth) (int, error) {
						rows, err := x.FetchReservesMonth(ctx, market, opts.Area, product, ym.Year, ym.Month)
						return len(rows), err
					}})
			}
		}
	}

	var eg errgroup.Group
	eg.SetLimit(2)
	fetched := make(chan int, len(jobs))

	for _, j := range jobs {
		eg.Go(func() error {
			if !opts.Force {
				if _, err := os.Stat(j.path); err == nil {
					return nil
				}
			}

			// jitter keeps parallel workers from bursting the API
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(rand.Intn(500)) * time.Millisecond):
			}

			rows, err := j.fetch(ctx, j.ym)
			if err != nil {
				return err
			}
			logger.Debug("prefetched market month",
				"year", j.ym.Year, "month", j.ym.Month, "rows", rows)
			fetched <- 1
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return 0, err
	}
	close(fetched)

	var count int
	for range fetched {
		count++
	}
	return count, nil
}
