// Package repositories provides access to exam paper definitions. The runner
// core does not care what sits behind the interface: a database, a remote
// service or an in-memory bank are interchangeable.
package repositories

import (
	"context"
	"errors"

	"github.com/prepdeck/cbe-service/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means the paper id does not resolve.
	ErrNotFound = errors.New("paper not found")
	// ErrFetch means the backend could not be reached or answered with a
	// server error. Recovered only by an explicit retry of the full load.
	ErrFetch = errors.New("paper fetch failed")
)

// PaperRepository returns immutable paper definitions.
type PaperRepository interface {
	GetByID(ctx context.Context, id string) (*models.Paper, error)
	List(ctx context.Context) ([]models.PaperSummary, error)
}

// IsNotFoundError reports whether err is a not-found condition from any
// backend.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsFetchError reports whether err is a transport-level failure.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetch)
}
