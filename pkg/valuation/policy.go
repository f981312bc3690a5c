// Package valuation applies risk haircuts to revenue streams, projects
// bankable cash flows, and sizes supportable debt for a project.
package valuation

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
)

// HaircutEntry sets the haircut fraction for one revenue class
type HaircutEntry struct {
	Class    string  `toml:"class"`
	Fraction float64 `toml:"fraction"`
}

// Validate checks if the HaircutEntry is valid
func (h *HaircutEntry) Validate() error {
	if !types.RevenueClass(h.Class).IsValid() {
		return goerr.New("unknown revenue class", goerr.V("class", h.Class))
	}
	if h.Fraction < 0 || h.Fraction > 1 {
		return goerr.New("haircut fraction must be within [0, 1]",
			goerr.V("class", h.Class), goerr.V("fraction", h.Fraction))
	}
	return nil
}

// Policy is the lender policy driving haircuts and debt sizing
type Policy struct {
	Haircuts           []HaircutEntry `toml:"haircut"`
	EscalationRate     float64        `toml:"escalation_rate"`
	TermYears          int            `toml:"term_years"`
	AnnualInterestRate float64        `toml:"annual_interest_rate"`
	DebtTermMonths     int            `toml:"debt_term_months"`
	TargetDSCR         float64        `toml:"target_dscr"`
}

// Validate checks if the Policy is valid
func (p *Policy) Validate() error {
	classes := make(map[string]bool)
	for _, h := range p.Haircuts {
		if err := h.Validate(); err != nil {
			return goerr.Wrap(err, "invalid haircut entry")
		}
		if classes[h.Class] {
			return goerr.New("duplicate haircut class", goerr.V("class", h.Class))
		}
		classes[h.Class] = true
	}

	if p.TermYears <= 0 {
		return goerr.New("term years must be positive", goerr.V("term_years", p.TermYears))
	}
	if p.DebtTermMonths <= 0 {
		return goerr.New("debt term months must be positive", goerr.V("debt_term_months", p.DebtTermMonths))
	}
	if p.AnnualInterestRate < 0 {
		return goerr.New("interest rate must not be negative", goerr.V("rate", p.AnnualInterestRate))
	}
	if p.TargetDSCR < 1 {
		return goerr.New("target DSCR must be at least 1", goerr.V("target_dscr", p.TargetDSCR))
	}
	if p.EscalationRate < 0 {
		return goerr.New("escalation rate must not be negative", goerr.V("rate", p.EscalationRate))
	}
	return nil
}

// FractionFor returns the haircut fraction for a class. Classes absent from
// the policy take a full haircut, so unclassified revenue never counts as
// bankable.
func (p *Policy) FractionFor(class types.RevenueClass) float64 {
	for _, h := range p.Haircuts {
		if h.Class == string(class) {
			return h.Fraction
		}
	}
	return 1.0
}

// DefaultPolicy returns the built-in lender policy used when no TOML file
// is configured.
func DefaultPolicy() *Policy {
	return &Policy{
		Haircuts: []HaircutEntry{
			{Class: string(types.RevenueContracted), Fraction: 0.05},
			{Class: string(types.RevenueSavings), Fraction: 0.15},
			{Class: string(types.RevenueIncentive), Fraction: 0.30},
			{Class: string(types.RevenueMerchant), Fraction: 0.50},
		},
		EscalationRate:     0.02,
		TermYears:          10,
		AnnualInterestRate: 0.08,
		DebtTermMonths:     120,
		TargetDSCR:         1.30,
	}
}

// LoadPolicy loads and validates a lender policy from a TOML file
func LoadPolicy(path string) (*Policy, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", path))
	}

	var policy Policy
	if err := toml.Unmarshal(data, &policy); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML policy", goerr.V("path", path))
	}

	if err := policy.Validate(); err != nil {
		return nil, goerr.Wrap(err, "policy validation failed", goerr.V("path", path))
	}

	return &policy, nil
}
