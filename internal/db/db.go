// Package db stores the song catalog in PostgreSQL.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Migrate creates the catalog tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Tracks returns a TrackRepository.
func (db *DB) Tracks() *TrackRepository {
	return &TrackRepository{pool: db.pool}
}

// Imports returns an ImportRepository.
func (db *DB) Imports() *ImportRepository {
	return &ImportRepository{pool: db.pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	position         INTEGER PRIMARY KEY,
	track_id         TEXT NOT NULL,
	track_name       TEXT NOT NULL,
	artists          TEXT NOT NULL,
	album_name       TEXT NOT NULL,
	track_genre      TEXT NOT NULL,
	popularity       INTEGER NOT NULL,
	danceability     DOUBLE PRECISION NOT NULL,
	energy           DOUBLE PRECISION NOT NULL,
	valence          DOUBLE PRECISION NOT NULL,
	tempo            DOUBLE PRECISION NOT NULL,
	acousticness     DOUBLE PRECISION NOT NULL,
	instrumentalness DOUBLE PRECISION NOT NULL,
	loudness         DOUBLE PRECISION NOT NULL,
	speechiness      DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS tracks_track_id_idx ON tracks (track_id);

CREATE TABLE IF NOT EXISTS catalog_imports (
	id          UUID PRIMARY KEY,
	source      TEXT NOT NULL,
	rows        INTEGER NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
`
