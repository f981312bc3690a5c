package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
	"github.com/gridmetrics-lab/derrev/pkg/utils/safe"
)

const (
	bundleFile = "site_bundle.json"
	loadFile   = "load.csv"
)

type projectRepository struct {
	mu  sync.RWMutex
	dir string
}

func (r *projectRepository) slugDir(slug string) string {
	return filepath.Join(r.dir, slug)
}

func readBundle(path string) (*model.Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read bundle", goerr.V("path", path))
	}
	var project model.Project
	if err := json.Unmarshal(raw, &project); err != nil {
		return nil, goerr.Wrap(err, "failed to parse bundle", goerr.V("path", path))
	}
	return &project, nil
}

func writeBundle(path string, project *model.Project) error {
	raw, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode bundle")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write bundle", goerr.V("path", path))
	}
	return nil
}

// findByID scans project directories for a matching bundle ID. Callers hold
// at least a read lock.
func (r *projectRepository) findByID(id types.ProjectID) (*model.Project, string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to list projects directory", goerr.V("dir", r.dir))
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		project, err := readBundle(filepath.Join(r.dir, entry.Name(), bundleFile))
		if err != nil {
			continue
		}
		if project.ID == id {
			return project, entry.Name(), nil
		}
	}
	return nil, "", goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slug := project.Identity.Slug()
	dir := r.slugDir(slug)
	if _, err := os.Stat(dir); err == nil {
		return nil, goerr.Wrap(ErrSlugTaken, "project directory already exists", goerr.V("slug", slug))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create project directory", goerr.V("dir", dir))
	}

	now := time.Now().UTC()
	created := *project
	if created.ID == "" {
		created.ID = types.NewProjectID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := writeBundle(filepath.Join(dir, bundleFile), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *projectRepository) Get(ctx context.Context, id types.ProjectID) (*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, _, err := r.findByID(id)
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (r *projectRepository) GetBySlug(ctx context.Context, slug string) (*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path := filepath.Join(r.slugDir(slug), bundleFile)
	if _, err := os.Stat(path); err != nil {
		return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("slug", slug))
	}
	return readBundle(path)
}

func (r *projectRepository) List(ctx context.Context) ([]model.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list projects directory", goerr.V("dir", r.dir))
	}

	summaries := make([]model.Summary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		project, err := readBundle(filepath.Join(r.dir, entry.Name(), bundleFile))
		if err != nil {
			// A corrupt or half-written bundle must not hide the rest
			logging.From(ctx).Warn("skipping unreadable project bundle",
				"dir", entry.Name(), "error", err)
			continue
		}
		summaries = append(summaries, project.Summarize())
	}
	model.SortSummaries(summaries)
	return summaries, nil
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, oldSlug, err := r.findByID(project.ID)
	if err != nil {
		return nil, err
	}

	newSlug := project.Identity.Slug()
	if newSlug != oldSlug {
		target := r.slugDir(newSlug)
		if _, err := os.Stat(target); err == nil {
			return nil, goerr.Wrap(ErrSlugTaken, "project directory already exists", goerr.V("slug", newSlug))
		}
		if err := os.Rename(r.slugDir(oldSlug), target); err != nil {
			return nil, goerr.Wrap(err, "failed to rename project directory",
				goerr.V("from", oldSlug), goerr.V("to", newSlug))
		}
	}

	updated := *project
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := writeBundle(filepath.Join(r.slugDir(newSlug), bundleFile), &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *projectRepository) Delete(ctx context.Context, id types.ProjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, slug, err := r.findByID(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(r.slugDir(slug)); err != nil {
		return goerr.Wrap(err, "failed to remove project directory", goerr.V("slug", slug))
	}
	return nil
}

func (r *projectRepository) PutLoad(ctx context.Context, id types.ProjectID, series *model.LoadSeries) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, slug, err := r.findByID(id)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(r.slugDir(slug), loadFile))
	if err != nil {
		return goerr.Wrap(err, "failed to create load file", goerr.V("slug", slug))
	}
	defer safe.Close(ctx, f)

	return series.WriteCSV(f)
}

func (r *projectRepository) GetLoad(ctx context.Context, id types.ProjectID) (*model.LoadSeries, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, slug, err := r.findByID(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(r.slugDir(slug), loadFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrNotFound, "load series not found", goerr.V("slug", slug))
		}
		return nil, goerr.Wrap(err, "failed to open load file", goerr.V("slug", slug))
	}
	defer safe.Close(ctx, f)

	return model.ReadLoadCSV(f)
}
