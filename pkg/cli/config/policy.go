package config

import (
	"github.com/urfave/cli/v3"

	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
	"github.com/gridmetrics-lab/derrev/pkg/valuation"
)

// Policy holds CLI flags for the lender policy file
type Policy struct {
	path string
}

// Flags returns CLI flags for policy configuration
func (x *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Path to a TOML lender policy (haircuts, term, rate, target DSCR)",
			Sources:     cli.EnvVars("DERREV_POLICY"),
			Destination: &x.path,
		},
	}
}

// Configure loads the policy file, or returns the built-in default when no
// path is set.
func (x *Policy) Configure() (*valuation.Policy, error) {
	if x.path == "" {
		logging.Default().Info("Using built-in lender policy")
		return valuation.DefaultPolicy(), nil
	}

	policy, err := valuation.LoadPolicy(x.path)
	if err != nil {
		return nil, err
	}
	logging.Default().Info("Loaded lender policy", "path", x.path)
	return policy, nil
}
