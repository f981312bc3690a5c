package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/valuation"
)

// PolicyOverrides selectively replaces fields of the configured lender
// policy for one underwriting run. Nil fields keep the configured value.
type PolicyOverrides struct {
	Haircuts           []valuation.HaircutEntry `json:"haircuts,omitempty"`
	EscalationRate     *float64                 `json:"escalation_rate,omitempty"`
	TermYears          *int                     `json:"term_years,omitempty"`
	AnnualInterestRate *float64                 `json:"annual_interest_rate,omitempty"`
	DebtTermMonths     *int                     `json:"debt_term_months,omitempty"`
	TargetDSCR         *float64                 `json:"target_dscr,omitempty"`
}

func (o *PolicyOverrides) apply(base *valuation.Policy) (*valuation.Policy, error) {
	policy := *base
	policy.Haircuts = append([]valuation.HaircutEntry(nil), base.Haircuts...)
	if o == nil {
		return &policy, nil
	}

	if len(o.Haircuts) > 0 {
		policy.Haircuts = o.Haircuts
	}
	if o.EscalationRate != nil {
		policy.EscalationRate = *o.EscalationRate
	}
	if o.TermYears != nil {
		policy.TermYears = *o.TermYears
	}
	if o.AnnualInterestRate != nil {
		policy.AnnualInterestRate = *o.AnnualInterestRate
	}
	if o.DebtTermMonths != nil {
		policy.DebtTermMonths = *o.DebtTermMonths
	}
	if o.TargetDSCR != nil {
		policy.TargetDSCR = *o.TargetDSCR
	}

	if err := policy.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid policy overrides")
	}
	return &policy, nil
}

// UnderwritingRequest carries the revenue streams to size debt against and
// optional policy overrides. When Streams is empty the streams are screened
// from the project's market data and billing history.
type UnderwritingRequest struct {
	Streams []model.RevenueStream `json:"streams,omitempty"`
	Policy  *PolicyOverrides      `json:"policy,omitempty"`
}

// Underwrite applies the lender policy to the project's revenue streams:
// haircuts, escalated cash flows, debt sizing, amortization.
func (uc *UseCases) Underwrite(ctx context.Context, id types.ProjectID, req UnderwritingRequest) (*model.Underwriting, error) {
	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	policy, err := req.Policy.apply(uc.policy)
	if err != nil {
		return nil, err
	}

	streams := req.Streams
	if len(streams) == 0 {
		streams, err = uc.screenStreams(ctx, project)
		if err != nil {
			return nil, err
		}
	}
	if len(streams) == 0 {
		return nil, goerr.Wrap(ErrNoRevenueStreams, "nothing to underwrite", goerr.V("id", id))
	}

	return valuation.Underwrite(streams, policy), nil
}
