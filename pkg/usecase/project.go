package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
)

// CreateProject validates and stores a new project bundle
func (uc *UseCases) CreateProject(ctx context.Context, project *model.Project) (*model.Project, error) {
	if err := project.Validate(); err != nil {
		return nil, err
	}
	return uc.repo.Project().Create(ctx, project)
}

// GetProject retrieves a project by ID
func (uc *UseCases) GetProject(ctx context.Context, id types.ProjectID) (*model.Project, error) {
	return uc.repo.Project().Get(ctx, id)
}

// GetProjectBySlug retrieves a project by its name slug
func (uc *UseCases) GetProjectBySlug(ctx context.Context, slug string) (*model.Project, error) {
	return uc.repo.Project().GetBySlug(ctx, slug)
}

// ListProjects retrieves summaries of all stored projects
func (uc *UseCases) ListProjects(ctx context.Context) ([]model.Summary, error) {
	return uc.repo.Project().List(ctx)
}

// UpdateProject validates and replaces an existing project bundle
func (uc *UseCases) UpdateProject(ctx context.Context, project *model.Project) (*model.Project, error) {
	if project.ID == "" {
		return nil, goerr.New("project ID is required for update")
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	return uc.repo.Project().Update(ctx, project)
}

// DeleteProject removes a project and its load series
func (uc *UseCases) DeleteProject(ctx context.Context, id types.ProjectID) error {
	return uc.repo.Project().Delete(ctx, id)
}

// PutLoad stores the interval load series for a project. Columns must match
// the project's meter layout.
func (uc *UseCases) PutLoad(ctx context.Context, id types.ProjectID, series *model.LoadSeries) error {
	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return err
	}

	want := model.NewLoadSeries(project.Load.PerMeter, project.Load.MeterIDs)
	if len(series.Columns) != len(want.Columns) {
		return goerr.New("load series columns do not match project meters",
			goerr.V("want", want.Columns), goerr.V("got", series.Columns))
	}

	return uc.repo.Project().PutLoad(ctx, id, series)
}

// GetLoad retrieves the interval load series for a project
func (uc *UseCases) GetLoad(ctx context.Context, id types.ProjectID) (*model.LoadSeries, error) {
	return uc.repo.Project().GetLoad(ctx, id)
}
