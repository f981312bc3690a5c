package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	dsirecat "github.com/gridmetrics-lab/derrev/pkg/catalog/dsire"
)

// Catalog holds CLI flags for the DSIRE incentive catalog database
type Catalog struct {
	dbPath string
}

// Flags returns CLI flags for catalog configuration
func (x *Catalog) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "catalog-db",
			Usage:       "Path to the DSIRE incentive catalog SQLite database",
			Value:       "catalog/dsire.db",
			Sources:     cli.EnvVars("DERREV_CATALOG_DB"),
			Destination: &x.dbPath,
		},
	}
}

// DBPath returns the configured database path
func (x *Catalog) DBPath() string {
	return x.dbPath
}

// Configure opens the catalog database, creating it if absent. The caller is
// responsible for calling Close() on the returned catalog.
func (x *Catalog) Configure() (*dsirecat.Catalog, error) {
	catalog, err := dsirecat.Open(x.dbPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open incentive catalog", goerr.V("path", x.dbPath))
	}
	return catalog, nil
}
