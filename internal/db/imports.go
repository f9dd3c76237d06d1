package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ImportRepository handles catalog import bookkeeping.
type ImportRepository struct {
	pool *pgxpool.Pool
}

// Record stores a completed import.
func (r *ImportRepository) Record(ctx context.Context, imp Import) error {
	query := `
		INSERT INTO catalog_imports (id, source, rows, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, imp.ID, imp.Source, imp.Rows, imp.StartedAt, imp.FinishedAt)
	if err != nil {
		return fmt.Errorf("recording import: %w", err)
	}
	return nil
}

// Latest returns the most recent import, or ErrNotFound if none exists.
func (r *ImportRepository) Latest(ctx context.Context) (*Import, error) {
	query := `
		SELECT id, source, rows, started_at, finished_at
		FROM catalog_imports
		ORDER BY finished_at DESC
		LIMIT 1
	`
	var imp Import
	err := r.pool.QueryRow(ctx, query).Scan(&imp.ID, &imp.Source, &imp.Rows, &imp.StartedAt, &imp.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest import: %w", err)
	}
	return &imp, nil
}
