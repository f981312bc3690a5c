package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/gridmetrics-lab/derrev/pkg/cli/config"
	"github.com/gridmetrics-lab/derrev/pkg/service/dsire"
	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
	"github.com/gridmetrics-lab/derrev/pkg/utils/safe"
)

func cmdCatalog() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Manage the DSIRE incentive catalog",
		Commands: []*cli.Command{
			cmdCatalogInit(),
			cmdCatalogBuild(),
			cmdCatalogStats(),
		},
	}
}

func cmdCatalogInit() *cli.Command {
	var catalogCfg config.Catalog

	return &cli.Command{
		Name:  "init",
		Usage: "Create an empty catalog database with the schema applied",
		Flags: catalogCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			catalog, err := catalogCfg.Configure()
			if err != nil {
				return err
			}
			defer safe.Close(ctx, catalog)

			color.Green("Catalog initialized: %s", catalog.Path())
			return nil
		},
	}
}

func cmdCatalogBuild() *cli.Command {
	var catalogCfg config.Catalog
	var months int
	var tag string

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "months",
			Usage:       "How many trailing months of program updates to fetch",
			Value:       24,
			Sources:     cli.EnvVars("DERREV_CATALOG_MONTHS"),
			Destination: &months,
		},
		&cli.StringFlag{
			Name:        "tag",
			Usage:       "Source tag recorded on upserted rows (defaults to the window end date)",
			Destination: &tag,
		},
	}
	flags = append(flags, catalogCfg.Flags()...)

	return &cli.Command{
		Name:  "build",
		Usage: "Fetch DSIRE program updates and upsert them into the catalog",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if months <= 0 {
				return goerr.New("months must be positive", goerr.V("months", months))
			}

			catalog, err := catalogCfg.Configure()
			if err != nil {
				return err
			}
			defer safe.Close(ctx, catalog)

			end := time.Now().UTC()
			start := end.AddDate(0, -months, 0)

			logging.Default().Info("Building catalog from DSIRE",
				"start", start.Format("2006-01-02"),
				"end", end.Format("2006-01-02"),
			)

			stats, err := catalog.BuildFromAPI(ctx, dsire.New(), start, end, tag)
			if err != nil {
				return goerr.Wrap(err, "failed to build catalog")
			}

			color.Green("Upserted %d programs (%d parameters) into %s",
				stats.ProgramsUpserted, stats.ParametersInserted, catalog.Path())
			return nil
		},
	}
}

func cmdCatalogStats() *cli.Command {
	var catalogCfg config.Catalog

	return &cli.Command{
		Name:  "stats",
		Usage: "Show catalog row counts",
		Flags: catalogCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			catalog, err := catalogCfg.Configure()
			if err != nil {
				return err
			}
			defer safe.Close(ctx, catalog)

			stats, err := catalog.Stats(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to read catalog stats")
			}

			bold := color.New(color.Bold)
			bold.Println("DSIRE incentive catalog")
			fmt.Printf("  path:       %s\n", stats.Path)
			fmt.Printf("  programs:   %d\n", stats.Programs)
			fmt.Printf("  parameters: %d\n", stats.Parameters)
			fmt.Printf("  states:     %d\n", stats.States)
			return nil
		},
	}
}
