package recommend

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/justestif/melora/internal/catalog"
	"github.com/justestif/melora/internal/metrics"
)

// Recommendation is the projection of a track returned by every query.
type Recommendation struct {
	TrackName  string       `json:"track_name"`
	Artists    string       `json:"artists"`
	AlbumName  string       `json:"album_name"`
	TrackID    string       `json:"track_id"`
	Popularity int          `json:"popularity"`
	Valence    *float64     `json:"valence,omitempty"`
	Energy     *float64     `json:"energy,omitempty"`
	Genre      string       `json:"track_genre"`
	Mood       catalog.Mood `json:"mood"`
}

// ErrTrackNotFound is returned by Track for an ID not in the catalog.
var ErrTrackNotFound = errors.New("track not found")

// Query kinds, used as metric labels.
const (
	queryMood         = "mood"
	queryGenre        = "genre"
	queryMoodAndGenre = "mood_genre"
)

// RecommendByMood samples up to n tracks of the given mood from the most
// popular matches, weighting by popularity. Results are ordered by
// popularity descending. An unknown mood returns ErrInvalidMood.
func (e *Engine) RecommendByMood(ctx context.Context, m catalog.Mood, n int) ([]Recommendation, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrInvalidMood, m, catalog.Moods())
	}

	t, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	matches := filter(t.tracks, func(tr *catalog.Track) bool { return tr.Mood == m })
	return e.recommend(queryMood, matches, e.moodPool, n), nil
}

// RecommendByGenre samples up to n tracks of the given genre from the most
// popular matches. Any genre string is accepted; unknown genres yield no
// results.
func (e *Engine) RecommendByGenre(ctx context.Context, genre string, n int) ([]Recommendation, error) {
	t, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	matches := filter(t.tracks, func(tr *catalog.Track) bool { return tr.Genre == genre })
	return e.recommend(queryGenre, matches, e.genrePool, n), nil
}

// RecommendByMoodAndGenre samples up to n tracks matching both filters.
// The intersection is small, so every match is a candidate.
func (e *Engine) RecommendByMoodAndGenre(ctx context.Context, m catalog.Mood, genre string, n int) ([]Recommendation, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrInvalidMood, m, catalog.Moods())
	}

	t, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	matches := filter(t.tracks, func(tr *catalog.Track) bool {
		return tr.Mood == m && tr.Genre == genre
	})
	return e.recommend(queryMoodAndGenre, matches, 0, n), nil
}

// recommend bounds matches to the poolSize most popular (0 means all),
// draws the sample and projects it.
func (e *Engine) recommend(kind string, matches []*catalog.Track, poolSize, n int) []Recommendation {
	metrics.Recommendations.WithLabelValues(kind).Inc()

	n = e.resultCount(n)
	if len(matches) == 0 {
		metrics.EmptyRecommendations.WithLabelValues(kind).Inc()
		return []Recommendation{}
	}

	// matches inherit the table's popularity-descending order
	pool := matches
	if poolSize > 0 && len(pool) > poolSize {
		pool = pool[:poolSize]
	}

	e.rngMu.Lock()
	picked := weightedSample(e.rng, pool, n, popularityWeight)
	e.rngMu.Unlock()

	slices.SortStableFunc(picked, func(a, b *catalog.Track) int {
		return cmp.Compare(b.Popularity, a.Popularity)
	})

	out := make([]Recommendation, len(picked))
	for i, tr := range picked {
		out[i] = project(tr)
	}
	metrics.RecommendationSize.WithLabelValues(kind).Observe(float64(len(out)))
	return out
}

func (e *Engine) resultCount(n int) int {
	if n <= 0 {
		n = DefaultResults
	}
	return min(n, e.maxResults)
}

// Track returns the catalog entry with the given Spotify track ID. When
// several deduplicated rows share an ID the most popular one wins.
func (e *Engine) Track(ctx context.Context, id string) (Recommendation, error) {
	t, err := e.load(ctx)
	if err != nil {
		return Recommendation{}, err
	}

	i := slices.IndexFunc(t.tracks, func(tr catalog.Track) bool { return tr.ID == id })
	if i < 0 {
		return Recommendation{}, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	return project(&t.tracks[i]), nil
}

func filter(tracks []catalog.Track, keep func(*catalog.Track) bool) []*catalog.Track {
	var out []*catalog.Track
	for i := range tracks {
		if keep(&tracks[i]) {
			out = append(out, &tracks[i])
		}
	}
	return out
}

func project(t *catalog.Track) Recommendation {
	return Recommendation{
		TrackName:  t.Name,
		Artists:    t.Artists,
		AlbumName:  t.Album,
		TrackID:    t.ID,
		Popularity: t.Popularity,
		Valence:    finite(t.Features.Valence),
		Energy:     finite(t.Features.Energy),
		Genre:      t.Genre,
		Mood:       t.Mood,
	}
}

// finite returns nil for a missing (NaN or infinite) feature value.
func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}
