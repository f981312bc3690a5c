package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/gridmetrics-lab/derrev/pkg/service/marketcache"
	"github.com/gridmetrics-lab/derrev/pkg/service/pjm"
	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
)

// Market holds CLI flags for the PJM Data Miner client and the market data
// cache.
type Market struct {
	primaryKey   string
	secondaryKey string
	cacheRoot    string
}

// Flags returns CLI flags for market data configuration
func (x *Market) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "pjm-api-key",
			Usage:       "PJM Data Miner 2 subscription key",
			Sources:     cli.EnvVars("DERREV_PJM_API_KEY", "PJM_API_KEY"),
			Destination: &x.primaryKey,
		},
		&cli.StringFlag{
			Name:        "pjm-api-key-secondary",
			Usage:       "Fallback PJM subscription key used when the primary is throttled",
			Sources:     cli.EnvVars("DERREV_PJM_API_KEY_SECONDARY"),
			Destination: &x.secondaryKey,
		},
		&cli.StringFlag{
			Name:        "cache-root",
			Usage:       "Directory for cached market data month files",
			Value:       "market_cache",
			Sources:     cli.EnvVars("DERREV_CACHE_ROOT"),
			Destination: &x.cacheRoot,
		},
	}
}

// HasKey reports whether a PJM API key was supplied
func (x *Market) HasKey() bool {
	return x.primaryKey != ""
}

// CacheRoot returns the configured cache directory
func (x *Market) CacheRoot() string {
	return x.cacheRoot
}

// Configure builds the market data cache. Without an API key the cache still
// serves previously fetched months but cannot fill gaps.
func (x *Market) Configure() (*marketcache.Cache, error) {
	var client *pjm.Client
	if x.primaryKey != "" {
		var opts []pjm.Option
		if x.secondaryKey != "" {
			opts = append(opts, pjm.WithSecondaryKey(x.secondaryKey))
		}
		c, err := pjm.New(x.primaryKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize PJM client")
		}
		client = c
	} else {
		logging.Default().Warn("PJM API key not configured, market cache is read-only")
	}

	cache, err := marketcache.New(x.cacheRoot, client)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize market cache")
	}
	return cache, nil
}
