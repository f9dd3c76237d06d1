// Package spotify builds Spotify links for catalog tracks and optionally
// looks up track metadata through the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNotFound is returned by Lookup when Spotify has no track with the ID.
var ErrNotFound = errors.New("spotify track not found")

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// NewWithCredentials creates a client authenticated with the client
// credentials flow. Tokens are fetched lazily on the first request.
func NewWithCredentials(ctx context.Context, clientID, clientSecret string, opts ...spotify.ClientOption) *Client {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	opts = append([]spotify.ClientOption{spotify.WithRetry(true)}, opts...)
	return New(spotify.New(config.Client(ctx), opts...))
}

// Lookup fetches album art, preview and page links for a track.
func (c *Client) Lookup(ctx context.Context, trackID string) (TrackDetails, error) {
	full, err := c.api.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		var apiErr spotify.Error
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusBadRequest) {
			return TrackDetails{}, fmt.Errorf("%w: %s", ErrNotFound, trackID)
		}
		return TrackDetails{}, fmt.Errorf("getting track %s: %w", trackID, err)
	}
	return convertTrack(full), nil
}

// convertTrack converts a Spotify FullTrack to TrackDetails.
func convertTrack(full *spotify.FullTrack) TrackDetails {
	artists := make([]string, len(full.Artists))
	for i, a := range full.Artists {
		artists[i] = a.Name
	}

	details := TrackDetails{
		ID:         full.ID.String(),
		Name:       full.Name,
		Artists:    strings.Join(artists, ", "),
		Album:      full.Album.Name,
		PreviewURL: full.PreviewURL,
		OpenURL:    full.ExternalURLs["spotify"],
	}
	if details.OpenURL == "" {
		details.OpenURL = TrackURL(details.ID)
	}
	// Spotify lists album images largest first.
	if len(full.Album.Images) > 0 {
		details.AlbumArtURL = full.Album.Images[0].URL
	}
	return details
}
