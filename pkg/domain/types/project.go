package types

import "github.com/google/uuid"

// ProjectID is the unique identifier of a project bundle
type ProjectID string

// NewProjectID generates a new random project ID
func NewProjectID() ProjectID {
	return ProjectID(uuid.NewString())
}

// String returns the string representation of the project ID
func (id ProjectID) String() string {
	return string(id)
}
