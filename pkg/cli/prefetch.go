package cli

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/gridmetrics-lab/derrev/pkg/cli/config"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/service/marketcache"
)

func cmdPrefetch() *cli.Command {
	var marketCfg config.Market
	var months int
	var regulation bool
	var energyZone string
	var pnodeID int64
	var reservesArea string
	var products []string
	var force bool

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "months",
			Usage:       "How many trailing full months to warm",
			Value:       12,
			Sources:     cli.EnvVars("DERREV_PREFETCH_MONTHS"),
			Destination: &months,
		},
		&cli.BoolFlag{
			Name:        "regulation",
			Usage:       "Warm the regulation market results feed",
			Value:       true,
			Destination: &regulation,
		},
		&cli.StringFlag{
			Name:        "energy-zone",
			Usage:       "Warm day-ahead LMPs for this zone (empty skips energy)",
			Destination: &energyZone,
		},
		&cli.Int64Flag{
			Name:        "pnode-id",
			Usage:       "Pricing node ID for the energy feed",
			Destination: &pnodeID,
		},
		&cli.StringFlag{
			Name:        "reserves-area",
			Usage:       "Warm reserve clearing prices for this area (empty skips reserves)",
			Destination: &reservesArea,
		},
		&cli.StringSliceFlag{
			Name:        "reserve-products",
			Usage:       "Reserve products to warm (defaults to the standard set)",
			Destination: &products,
		},
		&cli.BoolFlag{
			Name:        "force",
			Usage:       "Refetch and overwrite months already in the cache",
			Destination: &force,
		},
	}
	flags = append(flags, marketCfg.Flags()...)

	return &cli.Command{
		Name:  "prefetch",
		Usage: "Warm the market data cache for the trailing months",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if !marketCfg.HasKey() {
				return goerr.New("pjm-api-key is required to prefetch market data")
			}
			if months <= 0 {
				return goerr.New("months must be positive", goerr.V("months", months))
			}

			cache, err := marketCfg.Configure()
			if err != nil {
				return err
			}

			end := time.Date(time.Now().UTC().Year(), time.Now().UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
			opts := marketcache.PrefetchOptions{
				Start:      end.AddDate(0, -months, 0),
				End:        end,
				Regulation: regulation,
				Force:      force,
			}
			if energyZone != "" {
				market := types.MarketDayAhead
				opts.EnergyMarket = &market
				opts.Zone = energyZone
				opts.PnodeID = pnodeID
			}
			if reservesArea != "" {
				market := types.MarketDayAhead
				opts.ReservesMarket = &market
				opts.Area = reservesArea
				opts.Products = products
			}

			fetched, err := cache.Prefetch(ctx, opts)
			if err != nil {
				return goerr.Wrap(err, "prefetch failed")
			}

			color.Green("Fetched %d months into %s", fetched, marketCfg.CacheRoot())
			return nil
		},
	}
}
