package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/justestif/melora/internal/catalog"
	"github.com/justestif/melora/internal/mood"
	"github.com/justestif/melora/internal/recommend"
	"github.com/justestif/melora/internal/spotify"
)

// Engine is the recommendation engine consumed by the handlers.
type Engine interface {
	Loaded() bool
	RecommendByMood(ctx context.Context, m catalog.Mood, n int) ([]recommend.Recommendation, error)
	RecommendByGenre(ctx context.Context, genre string, n int) ([]recommend.Recommendation, error)
	RecommendByMoodAndGenre(ctx context.Context, m catalog.Mood, genre string, n int) ([]recommend.Recommendation, error)
	Track(ctx context.Context, id string) (recommend.Recommendation, error)
	AvailableMoods() []catalog.Mood
	AvailableGenres(ctx context.Context) ([]string, error)
	MoodDistribution(ctx context.Context) ([]recommend.MoodCount, error)
	GenreDistribution(ctx context.Context, m catalog.Mood, top int) ([]recommend.GenreCount, error)
	MoodStats(ctx context.Context) ([]recommend.MoodFeatures, error)
	DatasetInfo(ctx context.Context) (recommend.DatasetInfo, error)
}

// TrackLookup fetches live Spotify metadata for a track.
type TrackLookup interface {
	Lookup(ctx context.Context, trackID string) (spotify.TrackDetails, error)
}

// errMissingFilter is returned when a recommendation request names neither
// a mood nor a genre.
var errMissingFilter = errors.New("choose a mood, a genre, or both")

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	engine    Engine
	lookup    TrackLookup
	templates *Templates
	logger    zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(engine Engine, lookup TrackLookup, templates *Templates, logger zerolog.Logger) *Handlers {
	return &Handlers{
		engine:    engine,
		lookup:    lookup,
		templates: templates,
		logger:    logger,
	}
}

// recommendQuery is the parsed form of ?mood=&genre=&n=.
type recommendQuery struct {
	mood  catalog.Mood
	genre string
	n     int
}

func parseRecommendQuery(r *http.Request) (recommendQuery, error) {
	q := r.URL.Query()
	rq := recommendQuery{
		mood:  catalog.Mood(strings.TrimSpace(q.Get("mood"))),
		genre: strings.TrimSpace(q.Get("genre")),
	}
	if rq.mood == "" && rq.genre == "" {
		return rq, errMissingFilter
	}
	if raw := q.Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return rq, errors.New("n must be an integer")
		}
		rq.n = n
	}
	return rq, nil
}

// run dispatches the query to the matching engine operation.
func (rq recommendQuery) run(ctx context.Context, e Engine) ([]recommend.Recommendation, error) {
	switch {
	case rq.mood != "" && rq.genre != "":
		return e.RecommendByMoodAndGenre(ctx, rq.mood, rq.genre, rq.n)
	case rq.mood != "":
		return e.RecommendByMood(ctx, rq.mood, rq.n)
	default:
		return e.RecommendByGenre(ctx, rq.genre, rq.n)
	}
}

// statusFor maps engine errors to HTTP status codes. Anything that is not a
// caller mistake means the catalog could not be loaded.
func statusFor(err error) int {
	switch {
	case errors.Is(err, recommend.ErrInvalidMood), errors.Is(err, errMissingFilter):
		return http.StatusBadRequest
	case errors.Is(err, recommend.ErrTrackNotFound):
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.engine.DatasetInfo(ctx)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	genres, err := h.engine.AvailableGenres(ctx)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	moods := h.engine.AvailableMoods()
	options := make([]MoodOption, len(moods))
	for i, m := range moods {
		energy, valence := quadrantCenter(m)
		options[i] = MoodOption{
			Mood:        m,
			Description: mood.Description(m),
			Color:       moodColor(energy, valence),
		}
	}

	h.render(w, r, http.StatusOK, "home", HomePageData{
		PageData: PageData{Title: "Melora", CurrentPath: r.URL.Path},
		Moods:    options,
		Genres:   genres,
		Dataset:  info,
	})
}

// Recommend handles the results page (GET /recommend).
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	rq, err := parseRecommendQuery(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	tracks, err := rq.run(r.Context(), h.engine)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	var title string
	switch {
	case rq.mood != "" && rq.genre != "":
		title = string(rq.mood) + " " + rq.genre
	case rq.mood != "":
		title = string(rq.mood) + " songs"
	default:
		title = rq.genre + " songs"
	}

	h.render(w, r, http.StatusOK, "recommend", RecommendPageData{
		PageData:    PageData{Title: title, CurrentPath: r.URL.Path},
		Mood:        rq.mood,
		Description: mood.Description(rq.mood),
		Genre:       rq.genre,
		Tracks:      tracks,
	})
}

// Dashboard handles the analytics page (GET /dashboard). ?mood= narrows
// the genre chart to one mood.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	genreMood := catalog.Mood(r.URL.Query().Get("mood"))

	info, err := h.engine.DatasetInfo(ctx)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	genres, err := h.engine.GenreDistribution(ctx, genreMood, recommend.DefaultTopGenres)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	features, err := h.engine.MoodStats(ctx)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "dashboard", DashboardPageData{
		PageData:  PageData{Title: "Dashboard", CurrentPath: r.URL.Path},
		Dataset:   info,
		Moods:     info.Moods,
		Genres:    genres,
		GenreMood: genreMood,
		Features:  features,
	})
}

// Health reports whether the catalog is loaded (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Loaded() {
		h.respondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error().Err(err).Str("page", page).Str("path", r.URL.Path).Msg("rendering template")
	}
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusServiceUnavailable {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("catalog unavailable")
		msg = "The song catalog is unavailable right now. Please try again later."
	}
	h.render(w, r, status, "error", ErrorPageData{
		PageData: PageData{Title: http.StatusText(status), CurrentPath: r.URL.Path, Error: msg},
		Status:   status,
	})
}

// quadrantCenter returns the (energy, valence) point at the middle of a
// mood's quadrant.
func quadrantCenter(m catalog.Mood) (energy, valence float64) {
	switch m {
	case catalog.Happy:
		return 0.75, 0.75
	case catalog.Sad:
		return 0.25, 0.25
	case catalog.Calm:
		return 0.25, 0.75
	default:
		return 0.75, 0.25
	}
}
