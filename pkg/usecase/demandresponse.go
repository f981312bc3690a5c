package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/estimator"
	"github.com/gridmetrics-lab/derrev/pkg/service/pudl"
)

// DemandResponseResult pairs the benchmark with the history it came from
type DemandResponseResult struct {
	Estimate estimator.DREstimate     `json:"estimate"`
	Filter   estimator.DRFilter       `json:"filter"`
	History  []pudl.DemandResponseRow `json:"history,omitempty"`
}

// DemandResponse benchmarks the project's utility demand response program
// from EIA-861. The filter narrows to the project's utility when the locator
// can resolve it, else to the balancing authority, else to the state.
func (uc *UseCases) DemandResponse(ctx context.Context, id types.ProjectID) (*DemandResponseResult, error) {
	if uc.store == nil {
		return nil, ErrPUDLUnavailable
	}
	if uc.locator == nil {
		return nil, ErrLocatorUnavailable
	}

	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Identity.SiteAddress == "" {
		return nil, goerr.Wrap(ErrNoSiteAddress, "cannot resolve utility for demand response",
			goerr.V("id", id))
	}

	location, err := uc.locator.InferFromAddress(ctx, project.Identity.SiteAddress, 0)
	if err != nil {
		return nil, err
	}

	rows, err := uc.store.ReadDemandResponse()
	if err != nil {
		return nil, err
	}

	filter := estimator.DRFilter{
		UtilityIDEIA: location.UtilityIDEIA,
		BAIDEIA:      location.BalancingAuthorityIDEIA,
		State:        location.State,
		Sector:       estimator.SectorFromCustomerType(project.Identity.CustomerType),
	}
	history := estimator.FilterDemandResponse(rows, filter)

	return &DemandResponseResult{
		Estimate: estimator.LatestDREstimate(history),
		Filter:   filter,
		History:  trimHistory(history, 10),
	}, nil
}

// trimHistory keeps the most recent n rows for the response payload
func trimHistory(rows []pudl.DemandResponseRow, n int) []pudl.DemandResponseRow {
	if len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}
