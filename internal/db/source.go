package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/justestif/melora/internal/catalog"
)

// Source serves the stored catalog to the recommendation engine.
type Source struct {
	db *DB
}

// Source returns the database as a catalog.Source.
func (db *DB) Source() *Source {
	return &Source{db: db}
}

// Name identifies the source in logs and the dataset summary.
func (s *Source) Name() string {
	return "postgres"
}

// Tracks returns the stored tracks. A database that has never been
// imported into is a load error.
func (s *Source) Tracks(ctx context.Context) ([]catalog.Track, error) {
	if _, err := s.db.Imports().Latest(ctx); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no catalog import recorded; run melora import", catalog.ErrLoad)
		}
		return nil, fmt.Errorf("%w: %w", catalog.ErrLoad, err)
	}

	tracks, err := s.db.Tracks().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrLoad, err)
	}
	return tracks, nil
}
