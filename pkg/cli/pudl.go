package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/gridmetrics-lab/derrev/pkg/cli/config"
	"github.com/gridmetrics-lab/derrev/pkg/service/pudl"
)

func cmdPUDL() *cli.Command {
	return &cli.Command{
		Name:  "pudl",
		Usage: "Manage the local EIA-861 parquet mirror",
		Commands: []*cli.Command{
			cmdPUDLStatus(),
			cmdPUDLDownload(),
		},
	}
}

func cmdPUDLStatus() *cli.Command {
	var pudlCfg config.PUDL

	return &cli.Command{
		Name:  "status",
		Usage: "Show which EIA-861 tables are present locally",
		Flags: pudlCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			store := pudlCfg.Configure()

			bold := color.New(color.Bold)
			bold.Printf("PUDL tables in %s\n", store.Dir())
			for _, name := range pudl.RequiredTables {
				if store.Available(name) {
					color.Green("  %-40s present", name)
				} else {
					color.Red("  %-40s missing", name)
				}
			}
			return nil
		},
	}
}

func cmdPUDLDownload() *cli.Command {
	var pudlCfg config.PUDL
	var force bool
	var only []string

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Usage:       "Re-download tables even when already present",
			Destination: &force,
		},
		&cli.StringSliceFlag{
			Name:        "only",
			Usage:       "Restrict the download to the named tables",
			Destination: &only,
		},
	}
	flags = append(flags, pudlCfg.Flags()...)

	return &cli.Command{
		Name:  "download",
		Usage: "Download the EIA-861 parquet tables",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			store := pudlCfg.Configure()

			reports := store.EnsureTables(ctx, force, only)
			var failed int
			for _, report := range reports {
				switch report.Status {
				case "error":
					failed++
					color.Red("  %-40s %s", report.Name, report.Status)
				case "downloaded":
					color.Green("  %-40s %s (%d bytes)", report.Name, report.Status, report.Bytes)
				default:
					fmt.Printf("  %-40s %s\n", report.Name, report.Status)
				}
			}

			if failed > 0 {
				return goerr.New("some tables failed to download",
					goerr.V("failed", failed), goerr.V("total", len(reports)))
			}
			return nil
		},
	}
}
