package learningpath

import "context"

// Repository provides read access to path definitions. Definitions
// pass Validate on load; an invalid path never reaches DeriveProgress.
type Repository interface {
	// GetPath returns a path definition.
	// Returns shared.ErrPathNotFound if unknown.
	GetPath(ctx context.Context, id string) (*Path, error)

	// ListPaths returns all published paths.
	ListPaths(ctx context.Context) ([]*Path, error)
}
