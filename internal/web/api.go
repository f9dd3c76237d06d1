package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/justestif/melora/internal/catalog"
	"github.com/justestif/melora/internal/recommend"
	"github.com/justestif/melora/internal/spotify"
)

// apiError is the body of every non-2xx API response.
type apiError struct {
	Error string `json:"error"`
}

// TrackResponse is the body of GET /api/tracks/{id}.
type TrackResponse struct {
	recommend.Recommendation
	EmbedURL  string                `json:"embed_url"`
	SearchURL string                `json:"search_url"`
	TrackURL  string                `json:"track_url"`
	Spotify   *spotify.TrackDetails `json:"spotify,omitempty"`
}

// respondJSON writes v as the JSON response body.
func (h *Handlers) respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("encoding response")
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// respondError writes err with the status statusFor assigns it. Load
// failures are logged and reported without internal detail.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusServiceUnavailable {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("catalog unavailable")
		msg = "catalog unavailable"
	}
	h.respondJSON(w, r, status, apiError{Error: msg})
}

// APIMoods handles GET /api/moods.
func (h *Handlers) APIMoods(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, h.engine.AvailableMoods())
}

// APIGenres handles GET /api/genres.
func (h *Handlers) APIGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.engine.AvailableGenres(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, genres)
}

// APIRecommendations handles GET /api/recommendations?mood=&genre=&n=.
func (h *Handlers) APIRecommendations(w http.ResponseWriter, r *http.Request) {
	rq, err := parseRecommendQuery(r)
	if err != nil {
		h.respondJSON(w, r, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	recs, err := rq.run(r.Context(), h.engine)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, recs)
}

// APIMoodDistribution handles GET /api/stats/moods.
func (h *Handlers) APIMoodDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.engine.MoodDistribution(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, dist)
}

// APIGenreDistribution handles GET /api/stats/genres?mood=&top=.
func (h *Handlers) APIGenreDistribution(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	top := 0
	if raw := q.Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.respondJSON(w, r, http.StatusBadRequest, apiError{Error: "top must be an integer"})
			return
		}
		top = n
	}

	dist, err := h.engine.GenreDistribution(r.Context(), catalog.Mood(q.Get("mood")), top)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, dist)
}

// APIMoodStats handles GET /api/stats/features.
func (h *Handlers) APIMoodStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.MoodStats(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, stats)
}

// APIDataset handles GET /api/dataset.
func (h *Handlers) APIDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.DatasetInfo(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, info)
}

// APITrack handles GET /api/tracks/{id}. Spotify metadata is attached when
// lookups are configured and succeed; a failed lookup is logged, not fatal.
func (h *Handlers) APITrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.engine.Track(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := TrackResponse{
		Recommendation: rec,
		EmbedURL:       spotify.EmbedURL(rec.TrackID),
		SearchURL:      spotify.SearchURL(rec.TrackName, rec.Artists),
		TrackURL:       spotify.TrackURL(rec.TrackID),
	}

	if h.lookup != nil {
		details, err := h.lookup.Lookup(r.Context(), rec.TrackID)
		switch {
		case err == nil:
			resp.Spotify = &details
		case errors.Is(err, spotify.ErrNotFound):
			h.logger.Debug().Str("track_id", rec.TrackID).Msg("track not on spotify")
		default:
			h.logger.Warn().Err(err).Str("track_id", rec.TrackID).Msg("spotify lookup failed")
		}
	}

	h.respondJSON(w, r, http.StatusOK, resp)
}
