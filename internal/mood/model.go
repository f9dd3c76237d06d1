package mood

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-json"
	"github.com/muesli/clusters"
	"github.com/rs/zerolog"

	"github.com/justestif/melora/internal/catalog"
)

// ErrInvalidModel is returned when a model artifact is internally inconsistent.
var ErrInvalidModel = errors.New("invalid model")

// CentroidModel is a nearest-centroid classifier over standardized features.
// Each centroid carries the label id it predicts.
type CentroidModel struct {
	Features  []string    `json:"features"`
	Mean      []float64   `json:"mean"`
	Scale     []float64   `json:"scale"`
	Centroids [][]float64 `json:"centroids"`
	Labels    []int       `json:"labels"`
}

// Validate checks that the model's dimensions agree.
func (m *CentroidModel) Validate() error {
	dims := len(m.Features)
	if dims == 0 {
		return fmt.Errorf("%w: no features", ErrInvalidModel)
	}
	if len(m.Mean) != dims || len(m.Scale) != dims {
		return fmt.Errorf("%w: scaler has %d/%d values for %d features", ErrInvalidModel, len(m.Mean), len(m.Scale), dims)
	}
	if len(m.Centroids) == 0 {
		return fmt.Errorf("%w: no centroids", ErrInvalidModel)
	}
	if len(m.Labels) != len(m.Centroids) {
		return fmt.Errorf("%w: %d labels for %d centroids", ErrInvalidModel, len(m.Labels), len(m.Centroids))
	}
	for i, c := range m.Centroids {
		if len(c) != dims {
			return fmt.Errorf("%w: centroid %d has %d dimensions, want %d", ErrInvalidModel, i, len(c), dims)
		}
	}
	for i, s := range m.Scale {
		if s == 0 {
			return fmt.Errorf("%w: zero scale for %s", ErrInvalidModel, m.Features[i])
		}
	}
	return nil
}

// Predict returns the label id of the nearest centroid for every row.
func (m *CentroidModel) Predict(rows [][]float64) ([]int, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	dims := len(m.Features)
	centers := make([]clusters.Coordinates, len(m.Centroids))
	for i, c := range m.Centroids {
		centers[i] = clusters.Coordinates(c)
	}

	ids := make([]int, len(rows))
	for i, row := range rows {
		if len(row) != dims {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(row), dims)
		}
		point := m.standardize(row)

		best := 0
		bestDist := point.Distance(centers[0])
		for j := 1; j < len(centers); j++ {
			if d := point.Distance(centers[j]); d < bestDist {
				best, bestDist = j, d
			}
		}
		ids[i] = m.Labels[best]
	}
	return ids, nil
}

func (m *CentroidModel) standardize(row []float64) clusters.Coordinates {
	out := make(clusters.Coordinates, len(row))
	for i, x := range row {
		out[i] = (x - m.Mean[i]) / m.Scale[i]
	}
	return out
}

// LabelEncoder maps label names to dense ids and back.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// Transform returns the id of every label.
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	ids := make([]int, len(labels))
	for i, l := range labels {
		id := slices.Index(e.Classes, l)
		if id < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, l)
		}
		ids[i] = id
	}
	return ids, nil
}

// InverseTransform returns the label name of every id.
func (e *LabelEncoder) InverseTransform(ids []int) ([]string, error) {
	names := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(e.Classes) {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownLabel, id)
		}
		names[i] = e.Classes[id]
	}
	return names, nil
}

// LoadArtifacts reads a model and its label encoder and returns a
// model-based classifier. Callers fall back to RuleBased on error.
func LoadArtifacts(modelPath, encoderPath string, logger zerolog.Logger) (Classifier, error) {
	if modelPath == "" || encoderPath == "" {
		return Classifier{}, fmt.Errorf("model artifacts not configured")
	}

	var model CentroidModel
	if err := readJSON(modelPath, &model); err != nil {
		return Classifier{}, fmt.Errorf("loading model: %w", err)
	}
	if err := model.Validate(); err != nil {
		return Classifier{}, fmt.Errorf("loading model %s: %w", modelPath, err)
	}
	if !slices.Equal(model.Features, catalog.FeatureNames) {
		return Classifier{}, fmt.Errorf("loading model %s: %w: features %v, want %v",
			modelPath, ErrShapeMismatch, model.Features, catalog.FeatureNames)
	}

	var encoder LabelEncoder
	if err := readJSON(encoderPath, &encoder); err != nil {
		return Classifier{}, fmt.Errorf("loading label encoder: %w", err)
	}
	if len(encoder.Classes) == 0 {
		return Classifier{}, fmt.Errorf("loading label encoder %s: no classes", encoderPath)
	}

	return ModelBased(&model, &encoder, logger), nil
}

// SaveArtifacts writes a model and its label encoder as JSON files.
func SaveArtifacts(modelPath, encoderPath string, model *CentroidModel, encoder *LabelEncoder) error {
	if err := writeJSON(modelPath, model); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	if err := writeJSON(encoderPath, encoder); err != nil {
		return fmt.Errorf("saving label encoder: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
