package catalog

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrLoad wraps every failure to produce a catalog from its source.
var ErrLoad = errors.New("catalog load failed")

// Column names of the song dataset.
const (
	colTrackID          = "track_id"
	colArtists          = "artists"
	colAlbumName        = "album_name"
	colTrackName        = "track_name"
	colPopularity       = "popularity"
	colDanceability     = "danceability"
	colEnergy           = "energy"
	colLoudness         = "loudness"
	colSpeechiness      = "speechiness"
	colAcousticness     = "acousticness"
	colInstrumentalness = "instrumentalness"
	colValence          = "valence"
	colTempo            = "tempo"
	colTrackGenre       = "track_genre"
)

// RequiredColumns are the header names a dataset must provide.
var RequiredColumns = []string{
	colTrackID, colArtists, colAlbumName, colTrackName, colPopularity,
	colDanceability, colEnergy, colLoudness, colSpeechiness, colAcousticness,
	colInstrumentalness, colValence, colTempo, colTrackGenre,
}

// FileSource reads the catalog from a CSV file with a header row.
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string {
	return "file:" + s.Path
}

// Tracks implements Source.
func (s FileSource) Tracks(ctx context.Context) ([]Track, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrLoad, s.Path, err)
	}
	defer f.Close()

	tracks, err := ReadCSV(ctx, bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return tracks, nil
}

// ReadCSV parses a song dataset. Extra columns are ignored and column order
// is free, but every RequiredColumns entry must be present in the header.
// Empty audio feature cells become NaN and an empty popularity cell is 0.
func ReadCSV(ctx context.Context, r io.Reader) ([]Track, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty dataset", ErrLoad)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrLoad, err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var tracks []Track
	for n := 1; ; n++ {
		if n%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}

		t, err := parseRecord(record, idx)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: %w", ErrLoad, line, err)
		}
		tracks = append(tracks, t)
	}

	return tracks, nil
}

// columnIndex maps each required column to its position in the header.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrLoad, strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRecord(record []string, idx map[string]int) (Track, error) {
	field := func(col string) string {
		i := idx[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	t := Track{
		ID:      field(colTrackID),
		Name:    field(colTrackName),
		Artists: field(colArtists),
		Album:   field(colAlbumName),
		Genre:   field(colTrackGenre),
	}

	if p := field(colPopularity); p != "" {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return Track{}, fmt.Errorf("column %s: %w", colPopularity, err)
		}
		if math.IsNaN(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return Track{}, fmt.Errorf("column %s: value %q out of range", colPopularity, p)
		}
		t.Popularity = int(v)
	}

	features := []struct {
		col string
		dst *float64
	}{
		{colDanceability, &t.Features.Danceability},
		{colEnergy, &t.Features.Energy},
		{colValence, &t.Features.Valence},
		{colTempo, &t.Features.Tempo},
		{colAcousticness, &t.Features.Acousticness},
		{colInstrumentalness, &t.Features.Instrumentalness},
		{colLoudness, &t.Features.Loudness},
		{colSpeechiness, &t.Features.Speechiness},
	}
	for _, f := range features {
		raw := field(f.col)
		if raw == "" {
			*f.dst = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Track{}, fmt.Errorf("column %s: %w", f.col, err)
		}
		*f.dst = v
	}

	return t, nil
}
