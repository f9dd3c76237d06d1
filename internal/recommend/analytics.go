package recommend

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/justestif/melora/internal/catalog"
	"github.com/justestif/melora/internal/mood"
)

// MoodCount is the number of tracks with a mood.
type MoodCount struct {
	Mood  catalog.Mood `json:"mood"`
	Count int          `json:"count"`
}

// GenreCount is the number of tracks listed under a genre.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// MoodFeatures holds per-mood averages, rounded to three decimals. Each
// feature is averaged over the tracks where it is present; a feature no
// track of the mood carries is null.
type MoodFeatures struct {
	Mood             catalog.Mood `json:"mood"`
	Tracks           int          `json:"tracks"`
	Valence          *float64     `json:"valence"`
	Energy           *float64     `json:"energy"`
	Danceability     *float64     `json:"danceability"`
	Acousticness     *float64     `json:"acousticness"`
	Instrumentalness *float64     `json:"instrumentalness"`
	Speechiness      *float64     `json:"speechiness"`
	Loudness         *float64     `json:"loudness"`
	Tempo            *float64     `json:"tempo"`
	Popularity       float64      `json:"popularity"`
}

// DatasetInfo summarizes the loaded catalog.
type DatasetInfo struct {
	TotalSongs   int           `json:"total_songs"`
	TotalGenres  int           `json:"total_genres"`
	TotalArtists int           `json:"total_artists"`
	Moods        []MoodCount   `json:"moods"`
	SnapshotID   string        `json:"snapshot_id"`
	Classifier   mood.Strategy `json:"classifier"`
	Source       string        `json:"source"`
	LoadedAt     time.Time     `json:"loaded_at"`
}

// AvailableMoods returns the fixed mood set in display order.
func (e *Engine) AvailableMoods() []catalog.Mood {
	return catalog.Moods()
}

// AvailableGenres returns the distinct genres of the catalog, sorted.
func (e *Engine) AvailableGenres(ctx context.Context) ([]string, error) {
	t, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.genres), nil
}

// MoodDistribution counts tracks per mood. Every mood is listed, in
// display order, even when its count is zero.
func (e *Engine) MoodDistribution(ctx context.Context) ([]MoodCount, error) {
	t, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return moodDistribution(t.tracks), nil
}

// GenreDistribution counts tracks per genre, most frequent first, truncated
// to top entries (DefaultTopGenres when top <= 0). An empty mood counts
// every track; any other mood must be valid.
func (e *Engine) GenreDistribution(ctx context.Context, m catalog.Mood, top int) ([]GenreCount, error) {
	if m != "" && !m.Valid() {
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrInvalidMood, m, catalog.Moods())
	}
	if top <= 0 {
		top = DefaultTopGenres
	}

	t, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, tr := range t.tracks {
		if m == "" || tr.Mood == m {
			counts[tr.Genre]++
		}
	}

	out := make([]GenreCount, 0, len(counts))
	for g, c := range counts {
		out = append(out, GenreCount{Genre: g, Count: c})
	}
	slices.SortFunc(out, func(a, b GenreCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Genre, b.Genre)
	})

	if len(out) > top {
		out = out[:top]
	}
	return out, nil
}

// MoodStats averages the audio features and popularity of each mood that
// has at least one track. Missing feature values are skipped.
func (e *Engine) MoodStats(ctx context.Context) ([]MoodFeatures, error) {
	t, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	type accum struct {
		tracks     int
		popularity float64
		features   [8]mean
	}

	sums := make(map[catalog.Mood]*accum)
	for _, tr := range t.tracks {
		s, ok := sums[tr.Mood]
		if !ok {
			s = &accum{}
			sums[tr.Mood] = s
		}
		s.tracks++
		s.popularity += float64(tr.Popularity)
		f := tr.Features
		for i, v := range [8]float64{
			f.Valence, f.Energy, f.Danceability, f.Acousticness,
			f.Instrumentalness, f.Speechiness, f.Loudness, f.Tempo,
		} {
			s.features[i].add(v)
		}
	}

	var out []MoodFeatures
	for _, m := range catalog.Moods() {
		s, ok := sums[m]
		if !ok {
			continue
		}
		out = append(out, MoodFeatures{
			Mood:             m,
			Tracks:           s.tracks,
			Valence:          s.features[0].value(),
			Energy:           s.features[1].value(),
			Danceability:     s.features[2].value(),
			Acousticness:     s.features[3].value(),
			Instrumentalness: s.features[4].value(),
			Speechiness:      s.features[5].value(),
			Loudness:         s.features[6].value(),
			Tempo:            s.features[7].value(),
			Popularity:       round3(s.popularity / float64(s.tracks)),
		})
	}
	return out, nil
}

// mean is a running average over finite values.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	m.sum += v
	m.n++
}

// value returns the rounded average, or nil when nothing was added.
func (m mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := round3(m.sum / float64(m.n))
	return &v
}

// DatasetInfo returns catalog totals and the mood distribution.
func (e *Engine) DatasetInfo(ctx context.Context) (DatasetInfo, error) {
	t, err := e.load(ctx)
	if err != nil {
		return DatasetInfo{}, err
	}

	artists := make(map[string]struct{})
	for _, tr := range t.tracks {
		artists[tr.Artists] = struct{}{}
	}

	return DatasetInfo{
		TotalSongs:   len(t.tracks),
		TotalGenres:  len(t.genres),
		TotalArtists: len(artists),
		Moods:        moodDistribution(t.tracks),
		SnapshotID:   t.snapshotID.String(),
		Classifier:   t.strategy,
		Source:       t.sourceName,
		LoadedAt:     t.loadedAt,
	}, nil
}

func moodDistribution(tracks []catalog.Track) []MoodCount {
	counts := make(map[catalog.Mood]int)
	for _, t := range tracks {
		counts[t.Mood]++
	}
	out := make([]MoodCount, 0, 4)
	for _, m := range catalog.Moods() {
		out = append(out, MoodCount{Mood: m, Count: counts[m]})
	}
	return out
}

// round3 rounds half away from zero to three decimals.
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
