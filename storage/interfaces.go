package storage

import (
	"context"
	"errors"

	"github.com/Re-Local/Backend/models"
)

// ErrNotFound is returned when no play is stored under the requested URL.
var ErrNotFound = errors.New("play not found")

// PlayStore is the interface any storage backend must satisfy. Upsert
// merges on write: fields absent from the incoming play keep their stored
// value.
type PlayStore interface {
	Upsert(ctx context.Context, p models.Play) error
	FindByURL(ctx context.Context, detailURL string) (*models.Play, error)
	FetchAll(ctx context.Context) ([]models.Play, error)
	Search(ctx context.Context, query string, limit int) ([]models.Play, error)
	Close() error
}

// SeedWriter persists the raw listing seeds of a run.
type SeedWriter interface {
	WriteSeeds(seeds []models.Seed) error
	Close() error
}
