// Package catalog holds the song data model and loads it from tabular sources.
package catalog

import (
	"context"
	"slices"
)

// Mood is one of the four fixed mood labels assigned to every track.
type Mood string

// The mood labels, in display order.
const (
	Happy Mood = "Happy"
	Sad   Mood = "Sad"
	Calm  Mood = "Calm"
	Tense Mood = "Tense"
)

// Moods returns the fixed mood set in display order.
func Moods() []Mood {
	return []Mood{Happy, Sad, Calm, Tense}
}

// Valid reports whether m is one of the four known moods.
func (m Mood) Valid() bool {
	return slices.Contains(Moods(), m)
}

// ParseMood converts s to a Mood, reporting false for unknown labels.
// Matching is exact; "happy" is not a mood.
func ParseMood(s string) (Mood, bool) {
	m := Mood(s)
	return m, m.Valid()
}

// AudioFeatures are the numeric inputs to mood classification.
// Missing values are NaN.
type AudioFeatures struct {
	Danceability     float64
	Energy           float64
	Valence          float64
	Tempo            float64
	Acousticness     float64
	Instrumentalness float64
	Loudness         float64
	Speechiness      float64
}

// FeatureNames lists the audio features in model input order.
var FeatureNames = []string{
	"danceability", "energy", "valence", "tempo",
	"acousticness", "instrumentalness", "loudness", "speechiness",
}

// Vector returns the features in FeatureNames order.
func (f AudioFeatures) Vector() []float64 {
	return []float64{
		f.Danceability, f.Energy, f.Valence, f.Tempo,
		f.Acousticness, f.Instrumentalness, f.Loudness, f.Speechiness,
	}
}

// Track is one row of the song dataset.
type Track struct {
	ID         string
	Name       string
	Artists    string
	Album      string
	Genre      string
	Popularity int
	Features   AudioFeatures
	Mood       Mood // empty until classified
}

// Key identifies a song independently of the genre it was listed under.
type Key struct {
	Name    string
	Artists string
}

// Key returns the deduplication key of the track.
func (t Track) Key() Key {
	return Key{Name: t.Name, Artists: t.Artists}
}

// Source yields the raw rows of a catalog.
type Source interface {
	// Name describes the source for logs and summaries.
	Name() string
	// Tracks reads every raw row, duplicates included, in source order.
	Tracks(ctx context.Context) ([]Track, error)
}
