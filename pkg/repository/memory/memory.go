package memory

import (
	"github.com/gridmetrics-lab/derrev/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	project *projectRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		project: newProjectRepository(),
	}
}

func (m *Memory) Project() interfaces.ProjectRepository {
	return m.project
}

func (m *Memory) Close() error {
	return nil
}
