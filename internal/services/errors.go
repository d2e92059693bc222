package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers malformed bodies and out-of-range values.
	// Nothing is persisted when it is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means the requested catalog entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness constraint was hit (duplicate
	// registration).
	ErrConflict = errors.New("conflict")

	// ErrIntegrity means an invariant was violated past validation. The
	// operation is aborted and state is left untouched.
	ErrIntegrity = errors.New("integrity violation")
)

// GenreResolutionError reports which public-input genre names could not
// be mapped onto the catalog, with the full catalog for reference.
type GenreResolutionError struct {
	NotFound        []string
	Ambiguous       []string
	AvailableGenres []string
}

func (e *GenreResolutionError) Error() string {
	return fmt.Sprintf("unresolved genres: not_found=%v ambiguous=%v", e.NotFound, e.Ambiguous)
}
