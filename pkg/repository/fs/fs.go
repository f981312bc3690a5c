package fs

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/interfaces"
)

// FS persists project bundles as directories under <root>/projects/<slug>,
// one site_bundle.json plus a load.csv per project. This is the default
// backend and keeps bundles readable and diffable on disk.
type FS struct {
	project *projectRepository
}

var _ interfaces.Repository = &FS{}

func New(root string) (*FS, error) {
	dir := filepath.Join(root, "projects")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create projects directory", goerr.V("dir", dir))
	}
	return &FS{
		project: &projectRepository{dir: dir},
	}, nil
}

func (f *FS) Project() interfaces.ProjectRepository {
	return f.project
}

func (f *FS) Close() error {
	return nil
}
