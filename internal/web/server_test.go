package web

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/justestif/melora/internal/catalog"
	"github.com/justestif/melora/internal/recommend"
	"github.com/justestif/melora/internal/spotify"
	webfs "github.com/justestif/melora/web"
)

type memSource struct {
	tracks []catalog.Track
	err    error
}

func (s memSource) Name() string { return "memory" }

func (s memSource) Tracks(ctx context.Context) ([]catalog.Track, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]catalog.Track(nil), s.tracks...), nil
}

func song(id, name, artists, genre string, popularity int, valence, energy float64) catalog.Track {
	return catalog.Track{
		ID: id, Name: name, Artists: artists, Album: name + " LP", Genre: genre, Popularity: popularity,
		Features: catalog.AudioFeatures{Valence: valence, Energy: energy, Tempo: 120},
	}
}

var fixture = []catalog.Track{
	song("h1", "Sunny Day", "The Brights", "pop", 80, 0.9, 0.8),
	song("s1", "Grey Rain", "Low Tide", "blues", 40, 0.1, 0.2),
	song("c1", "Still Water", "Drift", "acoustic", 30, 0.7, 0.1),
	song("t1", "Red Alert", "Hammer", "metal", 60, 0.2, 0.9),
}

type fakeLookup struct {
	details spotify.TrackDetails
	err     error
}

func (f fakeLookup) Lookup(ctx context.Context, trackID string) (spotify.TrackDetails, error) {
	return f.details, f.err
}

func newTestServer(t *testing.T, src catalog.Source, lookup TrackLookup) http.Handler {
	t.Helper()

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		t.Fatal(err)
	}
	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		t.Fatal(err)
	}

	srv, err := NewServer(ServerConfig{
		Addr:        "127.0.0.1:0",
		CORSOrigins: []string{"*"},
		TemplatesFS: templates,
		StaticFS:    static,
		Engine:      recommend.New(src, recommend.WithSeed(7)),
		Lookup:      lookup,
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv.Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAPI_Status(t *testing.T) {
	h := newTestServer(t, memSource{tracks: fixture}, nil)

	tests := []struct {
		target string
		want   int
	}{
		{"/api/moods", http.StatusOK},
		{"/api/genres", http.StatusOK},
		{"/api/recommendations?mood=Happy", http.StatusOK},
		{"/api/recommendations?genre=pop&n=3", http.StatusOK},
		{"/api/recommendations?mood=Calm&genre=acoustic", http.StatusOK},
		{"/api/recommendations", http.StatusBadRequest},
		{"/api/recommendations?mood=InvalidMood", http.StatusBadRequest},
		{"/api/recommendations?mood=happy", http.StatusBadRequest},
		{"/api/recommendations?mood=Happy&n=lots", http.StatusBadRequest},
		{"/api/stats/moods", http.StatusOK},
		{"/api/stats/genres", http.StatusOK},
		{"/api/stats/genres?mood=Sad&top=5", http.StatusOK},
		{"/api/stats/genres?mood=Bored", http.StatusBadRequest},
		{"/api/stats/genres?top=x", http.StatusBadRequest},
		{"/api/stats/features", http.StatusOK},
		{"/api/dataset", http.StatusOK},
		{"/api/tracks/h1", http.StatusOK},
		{"/api/tracks/nope", http.StatusNotFound},
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/static/style.css", http.StatusOK},
		{"/", http.StatusOK},
		{"/recommend?mood=Happy", http.StatusOK},
		{"/recommend?genre=metal", http.StatusOK},
		{"/recommend", http.StatusBadRequest},
		{"/recommend?mood=Elated", http.StatusBadRequest},
		{"/dashboard", http.StatusOK},
		{"/dashboard?mood=Tense", http.StatusOK},
		{"/does-not-exist", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, h, tt.target)
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d (body %q)", tt.target, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAPI_Moods(t *testing.T) {
	h := newTestServer(t, memSource{tracks: fixture}, nil)

	got := decode[[]string](t, get(t, h, "/api/moods"))
	want := []string{"Happy", "Sad", "Calm", "Tense"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("moods = %v, want %v", got, want)
	}
}

func TestAPI_RecommendationsByMood(t *testing.T) {
	h := newTestServer(t, memSource{tracks: fixture}, nil)

	rec := get(t, h, "/api/recommendations?mood=Happy&n=10")
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	recs := decode[[]recommend.Recommendation](t, rec)
	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	if recs[0].TrackName != "Sunny Day" || recs[0].Mood != catalog.Happy {
		t.Errorf("recommendation = %+v, want Sunny Day / Happy", recs[0])
	}
}

func TestAPI_UnknownGenreIsEmptyArray(t *testing.T) {
	h := newTestServer(t, memSource{tracks: fixture}, nil)

	rec := get(t, h, "/api/recommendations?genre=nonexistent-genre&n=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestAPI_InvalidMoodBody(t *testing.T) {
	h := newTestServer(t, memSource{tracks: fixture}, nil)

	rec := get(t, h, "/api/recommendations?mood=InvalidMood&n=5")
	body := decode[apiError](t, rec)
	if !strings.Contains(body.Error, "invalid mood") {
		t.Errorf("error = %q, want it to mention invalid mood", body.Error)
	}
}

func TestAPI_MoodDistribution(t *testing.T) {
	h := newTestServer(t, memSource{tracks: fixture}, nil)

	dist := decode[[]recommend.MoodCount](t, get(t, h, "/api/stats/moods"))
	if len(dist) != 4 {
		t.Fatalf("got %d moods, want 4", len(dist))
	}
	for _, mc := range dist {
		if mc.Count != 1 {
			t.Errorf("%s count = %d, want 1", mc.Mood, mc.Count)
		}
	}
}

func TestAPI_Track(t *testing.T) {
	details := spotify.TrackDetails{ID: "h1", Name: "Sunny Day", AlbumArtURL: "https://img/h1"}
	h := newTestServer(t, memSource{tracks: fixture}, fakeLookup{details: details})

	got := decode[TrackResponse](t, get(t, h, "/api/tracks/h1"))
	if got.TrackName != "Sunny Day" {
		t.Errorf("TrackName = %q, want Sunny Day", got.TrackName)
	}
	if got.EmbedURL != "https://open.spotify.com/embed/track/h1" {
		t.Errorf("EmbedURL = %q", got.EmbedURL)
	}
	if got.SearchURL != "https://open.spotify.com/search/Sunny+Day+The+Brights" {
		t.Errorf("SearchURL = %q", got.SearchURL)
	}
	if got.Spotify == nil || got.Spotify.AlbumArtURL != "https://img/h1" {
		t.Errorf("Spotify = %+v, want lookup details", got.Spotify)
	}
}

func TestAPI_TrackLookupFailureIsNotFatal(t *testing.T) {
	h := newTestServer(t, memSource{tracks: fixture}, fakeLookup{err: errors.New("spotify down")})

	rec := get(t, h, "/api/tracks/t1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[TrackResponse](t, rec); got.Spotify != nil {
		t.Errorf("Spotify = %+v, want nil after failed lookup", got.Spotify)
	}
}

func TestServer_LoadFailure(t *testing.T) {
	h := newTestServer(t, memSource{err: catalog.ErrLoad}, nil)

	for _, target := range []string{"/api/genres", "/api/recommendations?mood=Happy", "/api/dataset", "/", "/dashboard", "/healthz"} {
		rec := get(t, h, target)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", target, rec.Code)
		}
	}

	// Bad input is still reported as such.
	if rec := get(t, h, "/api/recommendations?mood=Nope"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid mood with failed catalog = %d, want 400", rec.Code)
	}
}

func TestPages_Content(t *testing.T) {
	h := newTestServer(t, memSource{tracks: fixture}, nil)

	tests := []struct {
		target string
		want   []string
	}{
		{"/", []string{"How are you feeling?", "Happy", "Tense", `<option value="metal">metal</option>`}},
		{"/recommend?mood=Happy", []string{"Sunny Day", `src="https://open.spotify.com/embed/track/h1"`, "https://open.spotify.com/search/Sunny", "Search on Spotify"}},
		{"/recommend?genre=nonexistent", []string{"No songs matched"}},
		{"/dashboard", []string{"Mood distribution", "Average features by mood", "rule-based"}},
		{"/recommend?mood=Bad", []string{"invalid mood"}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			body := get(t, h, tt.target).Body.String()
			for _, want := range tt.want {
				if !strings.Contains(body, want) {
					t.Errorf("GET %s body missing %q", tt.target, want)
				}
			}
		})
	}
}

func TestAPI_CORS(t *testing.T) {
	h := newTestServer(t, memSource{tracks: fixture}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/moods", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestMoodColor(t *testing.T) {
	tests := []struct {
		energy, valence float64
		want            string
	}{
		{0, 0, "hsl(264, 60%, 40%)"},
		{1, 1, "hsl(35, 100%, 60%)"},
	}
	for _, tt := range tests {
		if got := string(moodColor(tt.energy, tt.valence)); got != tt.want {
			t.Errorf("moodColor(%v, %v) = %q, want %q", tt.energy, tt.valence, got, tt.want)
		}
	}
}

func TestNewServer_DefaultAddr(t *testing.T) {
	srv, err := NewServer(ServerConfig{Engine: recommend.New(memSource{tracks: fixture}), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if srv.server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", srv.server.Addr)
	}
}

const sparseCSV = "track_id,artists,album_name,track_name,popularity,danceability,energy,loudness,speechiness,acousticness,instrumentalness,valence,tempo,track_genre\n" +
	"a,Artist A,Album,Song A,10,,0.9,-5,0.1,0.2,0,0.8,120,pop\n" +
	"b,Artist B,Album,Song B,20,0.4,0.7,-7,0.1,0.2,0,,100,pop\n"

func TestAPI_MissingFeatureValues(t *testing.T) {
	tracks, err := catalog.ReadCSV(context.Background(), strings.NewReader(sparseCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	h := newTestServer(t, memSource{tracks: tracks}, nil)

	for _, target := range []string{
		"/api/stats/features",
		"/api/recommendations?genre=pop",
		"/api/tracks/b",
		"/dashboard",
	} {
		rec := get(t, h, target)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200: %s", target, rec.Code, rec.Body.String())
		}
	}

	stats := decode[[]map[string]any](t, get(t, h, "/api/stats/features"))
	if len(stats) != 2 {
		t.Fatalf("got %d mood rows, want 2", len(stats))
	}
	if v, ok := stats[0]["danceability"]; !ok || v != nil {
		t.Errorf("Happy danceability = %v, want null", v)
	}
	if v := stats[1]["danceability"]; v != 0.4 {
		t.Errorf("Tense danceability = %v, want 0.4", v)
	}

	track := decode[map[string]any](t, get(t, h, "/api/tracks/b"))
	if _, ok := track["valence"]; ok {
		t.Errorf("track b valence = %v, want it omitted", track["valence"])
	}
	if track["energy"] != 0.7 {
		t.Errorf("track b energy = %v, want 0.7", track["energy"])
	}
}
