package usecase

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/catalog/markets"
	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/service/locator"
)

// ProgramFilter narrows the incentive program listing
type ProgramFilter struct {
	State             string `json:"state,omitempty"` // overrides the project state
	Type              string `json:"type,omitempty"`
	Category          string `json:"category,omitempty"`
	Technology        string `json:"technology,omitempty"`
	Query             string `json:"query,omitempty"` // free text over name/admin/utilities
	UpdatedSinceYears int    `json:"updated_since_years,omitempty"`
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

func lastUpdateYear(lastUpdate string) int {
	m := yearPattern.FindString(lastUpdate)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func matchesFilter(p *model.Program, filter ProgramFilter, cutoffYear int) bool {
	if filter.Type != "" && !containsFold(p.Type, filter.Type) {
		return false
	}
	if filter.Category != "" && !containsFold(p.Category, filter.Category) {
		return false
	}
	if filter.Technology != "" && !containsFold(p.Technologies, filter.Technology) {
		return false
	}
	if filter.Query != "" &&
		!containsFold(p.Name, filter.Query) &&
		!containsFold(p.Administrator, filter.Query) &&
		!containsFold(p.Utilities, filter.Query) {
		return false
	}
	if cutoffYear > 0 {
		if y := lastUpdateYear(p.LastUpdate); y != 0 && y < cutoffYear {
			return false
		}
	}
	return true
}

// Programs lists DSIRE incentive programs for a project's state, further
// narrowed by the filter. The state comes from the filter when set, else
// from the project's site address.
func (uc *UseCases) Programs(ctx context.Context, id types.ProjectID, filter ProgramFilter) ([]model.Program, error) {
	if uc.catalog == nil {
		return nil, ErrCatalogUnavailable
	}

	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	state := filter.State
	if state == "" {
		state = locator.ParseState(project.Identity.SiteAddress)
	}
	if state == "" {
		return nil, goerr.New("no state to filter programs by",
			goerr.V("id", id), goerr.V("address", project.Identity.SiteAddress))
	}

	programs, err := uc.catalog.ProgramsByState(ctx, state)
	if err != nil {
		return nil, err
	}

	var cutoffYear int
	if filter.UpdatedSinceYears > 0 {
		cutoffYear = time.Now().Year() - filter.UpdatedSinceYears
	}

	out := programs[:0]
	for _, p := range programs {
		if matchesFilter(&p, filter, cutoffYear) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ProgramParameters returns the extracted incentive amounts of one program
func (uc *UseCases) ProgramParameters(ctx context.Context, programID string) ([]model.ProgramParameter, error) {
	if uc.catalog == nil {
		return nil, ErrCatalogUnavailable
	}
	return uc.catalog.ParametersForProgram(ctx, programID)
}

// MarketPrograms lists the merchant market programs of the project's ISO
func (uc *UseCases) MarketPrograms(ctx context.Context, id types.ProjectID) ([]model.MarketProgram, error) {
	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	iso, err := uc.projectISO(ctx, project)
	if err != nil {
		return nil, err
	}
	return markets.ProgramsForISO(string(iso)), nil
}
