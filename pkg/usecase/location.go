package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/utils/async"
	"github.com/gridmetrics-lab/derrev/pkg/utils/errutil"
)

// InferLocation resolves the project's grid context from its site address
// and persists the result onto the bundle's inferred block. Year bounds the
// PUDL vintage (zero means latest).
func (uc *UseCases) InferLocation(ctx context.Context, id types.ProjectID, year int) (*model.Location, error) {
	if uc.locator == nil {
		return nil, ErrLocatorUnavailable
	}

	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Identity.SiteAddress == "" {
		return nil, goerr.Wrap(ErrNoSiteAddress, "cannot infer location", goerr.V("id", id))
	}

	location, err := uc.locator.InferFromAddress(ctx, project.Identity.SiteAddress, year)
	if err != nil {
		return nil, errutil.Handle(ctx, err, "location inference failed")
	}

	if project.Inferred == nil {
		project.Inferred = &model.Inferred{}
	}
	project.Inferred.UtilityName = location.UtilityName
	project.Inferred.ISORTO = location.ISORTO
	if location.BalancingAuthorityName != "" {
		project.Inferred.ServiceTerritory = location.BalancingAuthorityName
	}

	// the inference itself succeeded; persist the inferred block without
	// holding up the response
	saved := *project
	async.Dispatch(ctx, func(ctx context.Context) error {
		if _, err := uc.repo.Project().Update(ctx, &saved); err != nil {
			return goerr.Wrap(err, "failed to persist inferred location", goerr.V("id", id))
		}
		return nil
	})

	return location, nil
}

// projectISO returns the project's ISO, inferring it on demand when absent
func (uc *UseCases) projectISO(ctx context.Context, project *model.Project) (types.ISO, error) {
	if project.Inferred != nil && project.Inferred.ISORTO != "" {
		return project.Inferred.ISORTO, nil
	}
	if uc.locator == nil || project.Identity.SiteAddress == "" {
		return "", goerr.Wrap(ErrISOUnknown, "no inferred ISO and no way to infer one",
			goerr.V("id", project.ID))
	}

	location, err := uc.locator.InferFromAddress(ctx, project.Identity.SiteAddress, 0)
	if err != nil {
		return "", err
	}
	if location.ISORTO == "" {
		return "", goerr.Wrap(ErrISOUnknown, "locator found no ISO", goerr.V("id", project.ID))
	}
	return location.ISORTO, nil
}
