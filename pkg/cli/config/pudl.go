package config

import (
	"github.com/urfave/cli/v3"

	"github.com/gridmetrics-lab/derrev/pkg/service/pudl"
)

// PUDL holds CLI flags for the local EIA-861 parquet mirror
type PUDL struct {
	dir string
}

// Flags returns CLI flags for PUDL configuration
func (x *PUDL) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "pudl-dir",
			Usage:       "Directory for downloaded PUDL parquet tables",
			Value:       "pudl_data",
			Sources:     cli.EnvVars("DERREV_PUDL_DIR"),
			Destination: &x.dir,
		},
	}
}

// Dir returns the configured PUDL directory
func (x *PUDL) Dir() string {
	return x.dir
}

// Configure builds the PUDL table store
func (x *PUDL) Configure() *pudl.Store {
	return pudl.New(x.dir)
}
