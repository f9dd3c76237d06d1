// Package recommend serves mood and genre song recommendations from an
// in-memory catalog.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justestif/melora/internal/catalog"
	"github.com/justestif/melora/internal/metrics"
	"github.com/justestif/melora/internal/mood"
)

// ErrInvalidMood is returned when a query names a mood outside the fixed set.
var ErrInvalidMood = errors.New("invalid mood")

// Default query parameters.
const (
	DefaultResults       = 10
	DefaultMaxResults    = 50
	DefaultMoodPoolSize  = 100
	DefaultGenrePoolSize = 50
	DefaultTopGenres     = 20
)

// ClassifierFunc picks the classifier for a load. It runs once per load.
type ClassifierFunc func() mood.Classifier

// Engine loads a catalog once and answers recommendation queries over it.
// It is safe for concurrent use.
type Engine struct {
	source     catalog.Source
	classifier ClassifierFunc
	logger     zerolog.Logger

	moodPool   int
	genrePool  int
	maxResults int

	// loadMu serializes the first load; table is set once it succeeds.
	loadMu sync.Mutex
	table  *table

	rng   *rand.Rand
	rngMu sync.Mutex
}

// table is the deduplicated, classified catalog. It is never mutated.
type table struct {
	tracks     []catalog.Track // popularity descending
	genres     []string        // sorted
	strategy   mood.Strategy
	snapshotID uuid.UUID
	sourceName string
	loadedAt   time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier sets how the mood classifier is chosen at load time.
// The default is rule-based.
func WithClassifier(fn ClassifierFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.classifier = fn
		}
	}
}

// WithLogger sets the engine logger.
//
//nolint:gocritic // zerolog loggers are passed by value
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "recommend").Logger()
	}
}

// WithSeed makes sampling deterministic.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // not security sensitive
	}
}

// WithPoolSizes sets how many of the most popular matches a mood or genre
// query samples from. Non-positive values keep the defaults.
func WithPoolSizes(moodPool, genrePool int) Option {
	return func(e *Engine) {
		if moodPool > 0 {
			e.moodPool = moodPool
		}
		if genrePool > 0 {
			e.genrePool = genrePool
		}
	}
}

// WithMaxResults caps the number of tracks a single query may return.
func WithMaxResults(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxResults = n
		}
	}
}

// New creates an engine over src. Nothing is read until the first query or
// an explicit Load.
func New(src catalog.Source, opts ...Option) *Engine {
	e := &Engine{
		source:     src,
		classifier: mood.RuleBased,
		logger:     zerolog.Nop(),
		moodPool:   DefaultMoodPoolSize,
		genrePool:  DefaultGenrePoolSize,
		maxResults: DefaultMaxResults,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // not security sensitive
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads, deduplicates and classifies the catalog if that has not
// happened yet. Concurrent callers wait for a single load. A failed load
// leaves the engine empty so a later call retries.
func (e *Engine) Load(ctx context.Context) error {
	_, err := e.load(ctx)
	return err
}

// Loaded reports whether the catalog is in memory.
func (e *Engine) Loaded() bool {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	return e.table != nil
}

func (e *Engine) load(ctx context.Context) (*table, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	if e.table != nil {
		return e.table, nil
	}

	start := time.Now()
	raw, err := e.source.Tracks(ctx)
	if err != nil {
		metrics.CatalogLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loading catalog from %s: %w", e.source.Name(), err)
	}

	tracks := catalog.Dedupe(raw)

	moods, strategy := e.classifier().Classify(tracks)
	for i := range tracks {
		tracks[i].Mood = moods[i]
	}

	t := &table{
		tracks:     tracks,
		genres:     distinctGenres(tracks),
		strategy:   strategy,
		snapshotID: uuid.New(),
		sourceName: e.source.Name(),
		loadedAt:   time.Now(),
	}
	e.table = t

	elapsed := time.Since(start)
	metrics.CatalogLoads.WithLabelValues("ok").Inc()
	metrics.CatalogLoadDuration.Observe(elapsed.Seconds())
	metrics.CatalogTracks.Set(float64(len(tracks)))

	e.logger.Info().
		Str("snapshot_id", t.snapshotID.String()).
		Str("source", t.sourceName).
		Str("classifier", string(strategy)).
		Int("raw_rows", len(raw)).
		Int("tracks", len(tracks)).
		Int("genres", len(t.genres)).
		Dur("elapsed", elapsed).
		Msg("catalog loaded")

	return t, nil
}

func distinctGenres(tracks []catalog.Track) []string {
	seen := make(map[string]struct{})
	var genres []string
	for _, t := range tracks {
		if _, ok := seen[t.Genre]; ok {
			continue
		}
		seen[t.Genre] = struct{}{}
		genres = append(genres, t.Genre)
	}
	slices.Sort(genres)
	return genres
}
