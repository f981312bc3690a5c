package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/gridmetrics-lab/derrev/pkg/cli/config"
	httpctrl "github.com/gridmetrics-lab/derrev/pkg/controller/http"
	"github.com/gridmetrics-lab/derrev/pkg/service/marketcache"
	"github.com/gridmetrics-lab/derrev/pkg/service/worker"
	"github.com/gridmetrics-lab/derrev/pkg/usecase"
	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
	"github.com/gridmetrics-lab/derrev/pkg/utils/safe"
)

func cmdServe() *cli.Command {
	var addr string
	var refreshInterval time.Duration
	var repoCfg config.Repository
	var marketCfg config.Market
	var locatorCfg config.Locator
	var pudlCfg config.PUDL
	var catalogCfg config.Catalog
	var policyCfg config.Policy

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("DERREV_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "market-refresh-interval",
			Usage:       "Interval for the background market data refresh (0 disables)",
			Value:       6 * time.Hour,
			Sources:     cli.EnvVars("DERREV_MARKET_REFRESH_INTERVAL"),
			Destination: &refreshInterval,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, marketCfg.Flags()...)
	flags = append(flags, locatorCfg.Flags()...)
	flags = append(flags, pudlCfg.Flags()...)
	flags = append(flags, catalogCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			policy, err := policyCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load lender policy")
			}

			cache, err := marketCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize market cache")
			}

			catalog, err := catalogCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to open incentive catalog")
			}
			defer safe.Close(ctx, catalog)

			store := pudlCfg.Configure()
			loc := locatorCfg.Configure(store)

			ucOpts := []usecase.Option{
				usecase.WithMarketCache(cache),
				usecase.WithCatalog(catalog),
				usecase.WithPUDL(store),
				usecase.WithPolicy(policy),
			}
			if loc != nil {
				ucOpts = append(ucOpts, usecase.WithLocator(loc))
			}
			uc := usecase.New(repo, ucOpts...)

			// Keep the trailing 12 months of regulation data warm when a
			// PJM key is configured
			var refreshWorker *worker.MarketRefreshWorker
			if marketCfg.HasKey() && refreshInterval > 0 {
				refreshWorker = worker.NewMarketRefreshWorker(cache,
					marketcache.PrefetchOptions{Regulation: true}, refreshInterval)
				if err := refreshWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start market refresh worker")
				}
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"backend", repoCfg.Backend(),
					"cache_root", marketCfg.CacheRoot(),
					"catalog_db", catalogCfg.DBPath(),
					"pudl_dir", pudlCfg.Dir(),
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if refreshWorker != nil {
					refreshWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
