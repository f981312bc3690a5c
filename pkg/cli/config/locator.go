package config

import (
	"github.com/urfave/cli/v3"

	"github.com/gridmetrics-lab/derrev/pkg/service/locator"
	"github.com/gridmetrics-lab/derrev/pkg/service/openei"
	"github.com/gridmetrics-lab/derrev/pkg/service/pudl"
	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
)

// Locator holds CLI flags for the OpenEI-based utility locator
type Locator struct {
	openeiKey   string
	requirePUDL bool
}

// Flags returns CLI flags for locator configuration
func (x *Locator) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "openei-api-key",
			Usage:       "OpenEI API key for utility lookup by address",
			Sources:     cli.EnvVars("DERREV_OPENEI_API_KEY", "OPENEI_API_KEY"),
			Destination: &x.openeiKey,
		},
		&cli.BoolFlag{
			Name:        "require-pudl",
			Usage:       "Fail location inference instead of falling back when EIA-861 tables are missing",
			Sources:     cli.EnvVars("DERREV_REQUIRE_PUDL"),
			Destination: &x.requirePUDL,
		},
	}
}

// IsConfigured reports whether the locator can be built
func (x *Locator) IsConfigured() bool {
	return x.openeiKey != ""
}

// Configure builds the locator on top of the PUDL store. Returns nil when no
// OpenEI key is configured; location inference is then unavailable.
func (x *Locator) Configure(store *pudl.Store) *locator.Locator {
	if x.openeiKey == "" {
		logging.Default().Warn("OpenEI API key not configured, location inference disabled")
		return nil
	}

	var opts []locator.Option
	if x.requirePUDL {
		opts = append(opts, locator.WithRequirePUDL())
	}
	return locator.New(openei.New(x.openeiKey), store, opts...)
}
