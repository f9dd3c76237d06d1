package spotify

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

// Default embed player size in pixels.
const (
	DefaultEmbedWidth  = 300
	DefaultEmbedHeight = 380
)

const (
	openBaseURL  = "https://open.spotify.com"
	embedBaseURL = openBaseURL + "/embed/track/"
)

// EmbedURL returns the embeddable player URL for a track ID.
// The ID is not validated.
func EmbedURL(trackID string) string {
	return embedBaseURL + url.PathEscape(trackID)
}

// TrackURL returns the open.spotify.com page for a track ID.
func TrackURL(trackID string) string {
	return openBaseURL + "/track/" + url.PathEscape(trackID)
}

// EmbedHTML returns an iframe embedding the Spotify player for a track.
// Non-positive dimensions fall back to the defaults.
func EmbedHTML(trackID string, width, height int) template.HTML {
	if width <= 0 {
		width = DefaultEmbedWidth
	}
	if height <= 0 {
		height = DefaultEmbedHeight
	}
	return template.HTML(fmt.Sprintf( //nolint:gosec // attribute value is escaped
		`<iframe src="%s" width="%d" height="%d" frameborder="0" allowtransparency="true" allow="encrypted-media"></iframe>`,
		template.HTMLEscapeString(EmbedURL(trackID)), width, height,
	))
}

// SearchURL returns a Spotify search link for a track name and artist.
// Spaces become '+'; other reserved characters are percent-encoded.
func SearchURL(trackName, artist string) string {
	words := strings.Split(trackName+" "+artist, " ")
	for i, w := range words {
		words[i] = url.PathEscape(w)
	}
	return openBaseURL + "/search/" + strings.Join(words, "+")
}
