package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
)

type projectRepository struct {
	mu       sync.RWMutex
	projects map[types.ProjectID]*model.Project
	slugs    map[string]types.ProjectID
	loads    map[types.ProjectID]*model.LoadSeries
}

func newProjectRepository() *projectRepository {
	return &projectRepository{
		projects: make(map[types.ProjectID]*model.Project),
		slugs:    make(map[string]types.ProjectID),
		loads:    make(map[types.ProjectID]*model.LoadSeries),
	}
}

// cloneProject copies the bundle deeply enough that callers cannot mutate
// stored state through returned pointers.
func cloneProject(p *model.Project) *model.Project {
	cp := *p
	cp.Load.MeterIDs = append([]string(nil), p.Load.MeterIDs...)
	cp.Tariff.MonthlyBilling = append([]model.BillingMonth(nil), p.Tariff.MonthlyBilling...)
	cp.PV.Rows = append([]model.PVRow(nil), p.PV.Rows...)
	cp.BESS.Rows = append([]model.BESSRow(nil), p.BESS.Rows...)
	if p.Inferred != nil {
		inf := *p.Inferred
		cp.Inferred = &inf
	}
	return &cp
}

func cloneSeries(s *model.LoadSeries) *model.LoadSeries {
	cp := &model.LoadSeries{
		Columns: append([]string(nil), s.Columns...),
		Rows:    make([]model.LoadRow, len(s.Rows)),
	}
	for i, row := range s.Rows {
		cp.Rows[i] = model.LoadRow{
			Start:  row.Start,
			Values: append([]float64(nil), row.Values...),
		}
	}
	return cp
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slug := project.Identity.Slug()
	if _, taken := r.slugs[slug]; taken {
		return nil, goerr.Wrap(ErrSlugTaken, "project slug already exists", goerr.V("slug", slug))
	}

	now := time.Now().UTC()
	created := cloneProject(project)
	if created.ID == "" {
		created.ID = types.NewProjectID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.projects[created.ID] = created
	r.slugs[slug] = created.ID
	return cloneProject(created), nil
}

func (r *projectRepository) Get(ctx context.Context, id types.ProjectID) (*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, exists := r.projects[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
	}
	return cloneProject(project), nil
}

func (r *projectRepository) GetBySlug(ctx context.Context, slug string) (*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.slugs[slug]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("slug", slug))
	}
	return cloneProject(r.projects[id]), nil
}

func (r *projectRepository) List(ctx context.Context) ([]model.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]model.Summary, 0, len(r.projects))
	for _, project := range r.projects {
		summaries = append(summaries, project.Summarize())
	}
	model.SortSummaries(summaries)
	return summaries, nil
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.projects[project.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", project.ID))
	}

	newSlug := project.Identity.Slug()
	oldSlug := existing.Identity.Slug()
	if newSlug != oldSlug {
		if owner, taken := r.slugs[newSlug]; taken && owner != project.ID {
			return nil, goerr.Wrap(ErrSlugTaken, "project slug already exists", goerr.V("slug", newSlug))
		}
		delete(r.slugs, oldSlug)
		r.slugs[newSlug] = project.ID
	}

	updated := cloneProject(project)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.projects[updated.ID] = updated
	return cloneProject(updated), nil
}

func (r *projectRepository) Delete(ctx context.Context, id types.ProjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.projects[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
	}

	delete(r.slugs, existing.Identity.Slug())
	delete(r.projects, id)
	delete(r.loads, id)
	return nil
}

func (r *projectRepository) PutLoad(ctx context.Context, id types.ProjectID, series *model.LoadSeries) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.projects[id]; !exists {
		return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
	}
	r.loads[id] = cloneSeries(series)
	return nil
}

func (r *projectRepository) GetLoad(ctx context.Context, id types.ProjectID) (*model.LoadSeries, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	series, exists := r.loads[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "load series not found", goerr.V("id", id))
	}
	return cloneSeries(series), nil
}
