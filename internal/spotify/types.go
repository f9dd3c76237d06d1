package spotify

// TrackDetails is the subset of Spotify track metadata shown next to a
// recommendation.
type TrackDetails struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artists     string `json:"artists"` // comma-separated artist names
	Album       string `json:"album"`
	AlbumArtURL string `json:"album_art_url,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
	OpenURL     string `json:"open_url"`
}
