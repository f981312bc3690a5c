package interfaces

import (
	"context"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
)

type ProjectRepository interface {
	// Create stores a new project bundle. The slug must not be taken.
	Create(ctx context.Context, project *model.Project) (*model.Project, error)

	// Get retrieves a project by ID
	Get(ctx context.Context, id types.ProjectID) (*model.Project, error)

	// GetBySlug retrieves a project by its name slug
	GetBySlug(ctx context.Context, slug string) (*model.Project, error)

	// List retrieves summaries of all stored projects
	List(ctx context.Context) ([]model.Summary, error)

	// Update replaces an existing project bundle
	Update(ctx context.Context, project *model.Project) (*model.Project, error)

	// Delete removes a project and its load series
	Delete(ctx context.Context, id types.ProjectID) error

	// PutLoad stores the interval load series for a project
	PutLoad(ctx context.Context, id types.ProjectID, series *model.LoadSeries) error

	// GetLoad retrieves the interval load series for a project
	GetLoad(ctx context.Context, id types.ProjectID) (*model.LoadSeries, error)
}
