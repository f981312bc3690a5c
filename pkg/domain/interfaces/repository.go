package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Project() ProjectRepository

	// Close releases backend resources. Safe to call more than once.
	Close() error
}
