package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/melora/internal/catalog"
)

// trackColumns is the column order used by CopyFrom and All.
var trackColumns = []string{
	"position", "track_id", "track_name", "artists", "album_name", "track_genre", "popularity",
	"danceability", "energy", "valence", "tempo",
	"acousticness", "instrumentalness", "loudness", "speechiness",
}

// TrackRepository handles track database operations.
type TrackRepository struct {
	pool *pgxpool.Pool
}

// ReplaceAll swaps the stored catalog for tracks in a single transaction.
// Row order is preserved.
func (r *TrackRepository) ReplaceAll(ctx context.Context, tracks []catalog.Track) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE tracks`); err != nil {
		return 0, fmt.Errorf("clearing tracks: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"tracks"}, trackColumns,
		pgx.CopyFromSlice(len(tracks), func(i int) ([]any, error) {
			t := tracks[i]
			f := t.Features
			return []any{
				i, t.ID, t.Name, t.Artists, t.Album, t.Genre, t.Popularity,
				f.Danceability, f.Energy, f.Valence, f.Tempo,
				f.Acousticness, f.Instrumentalness, f.Loudness, f.Speechiness,
			}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copying tracks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing tracks: %w", err)
	}
	return n, nil
}

// All returns every stored track in import order. Moods are not stored.
func (r *TrackRepository) All(ctx context.Context) ([]catalog.Track, error) {
	query := `
		SELECT track_id, track_name, artists, album_name, track_genre, popularity,
			danceability, energy, valence, tempo,
			acousticness, instrumentalness, loudness, speechiness
		FROM tracks
		ORDER BY position
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying tracks: %w", err)
	}
	defer rows.Close()

	var tracks []catalog.Track
	for rows.Next() {
		var t catalog.Track
		f := &t.Features
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Artists, &t.Album, &t.Genre, &t.Popularity,
			&f.Danceability, &f.Energy, &f.Valence, &f.Tempo,
			&f.Acousticness, &f.Instrumentalness, &f.Loudness, &f.Speechiness,
		); err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// Count returns the number of stored tracks.
func (r *TrackRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting tracks: %w", err)
	}
	return n, nil
}
