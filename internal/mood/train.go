package mood

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/justestif/melora/internal/catalog"
)

// ErrTooFewTracks is returned when there are fewer usable tracks than clusters.
var ErrTooFewTracks = errors.New("too few tracks to train")

// TrainConfig holds centroid model training parameters.
type TrainConfig struct {
	NumClusters int // Number of k-means clusters (default: 8)
}

// DefaultTrainConfig returns the recommended default configuration.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{NumClusters: 8}
}

// featureObservation wraps a standardized feature vector to implement
// clusters.Observation.
type featureObservation struct {
	coords clusters.Coordinates
}

func (o featureObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o featureObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// Train fits a nearest-centroid model with k-means over the tracks' audio
// features. Each centroid is labelled by applying Rule to its valence and
// energy. Tracks with missing features are skipped.
func Train(tracks []catalog.Track, cfg TrainConfig) (*CentroidModel, *LabelEncoder, error) {
	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultTrainConfig().NumClusters
	}

	var rows [][]float64
	for _, t := range tracks {
		v := t.Features.Vector()
		if !slices.ContainsFunc(v, nonFinite) {
			rows = append(rows, v)
		}
	}
	if len(rows) < cfg.NumClusters {
		return nil, nil, fmt.Errorf("%w: %d usable tracks for %d clusters", ErrTooFewTracks, len(rows), cfg.NumClusters)
	}

	model := &CentroidModel{Features: slices.Clone(catalog.FeatureNames)}
	model.Mean, model.Scale = scaler(rows)

	var obs clusters.Observations
	for _, row := range rows {
		obs = append(obs, featureObservation{coords: model.standardize(row)})
	}

	km := kmeans.New()
	result, err := km.Partition(obs, cfg.NumClusters)
	if err != nil {
		return nil, nil, fmt.Errorf("k-means clustering: %w", err)
	}

	encoder := &LabelEncoder{}
	for _, m := range catalog.Moods() {
		encoder.Classes = append(encoder.Classes, string(m))
	}
	slices.Sort(encoder.Classes)

	valenceIdx := slices.Index(catalog.FeatureNames, "valence")
	energyIdx := slices.Index(catalog.FeatureNames, "energy")

	for _, cluster := range result {
		if len(cluster.Observations) == 0 {
			continue
		}
		center := slices.Clone([]float64(cluster.Center))
		valence := center[valenceIdx]*model.Scale[valenceIdx] + model.Mean[valenceIdx]
		energy := center[energyIdx]*model.Scale[energyIdx] + model.Mean[energyIdx]

		ids, err := encoder.Transform([]string{string(Rule(valence, energy))})
		if err != nil {
			return nil, nil, err
		}
		model.Centroids = append(model.Centroids, center)
		model.Labels = append(model.Labels, ids[0])
	}

	if err := model.Validate(); err != nil {
		return nil, nil, err
	}
	return model, encoder, nil
}

// scaler returns the per-column mean and standard deviation. A constant
// column gets scale 1.
func scaler(rows [][]float64) (mean, scale []float64) {
	dims := len(rows[0])
	mean = make([]float64, dims)
	scale = make([]float64, dims)
	n := float64(len(rows))

	for _, row := range rows {
		for i, x := range row {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= n
	}

	for _, row := range rows {
		for i, x := range row {
			d := x - mean[i]
			scale[i] += d * d
		}
	}
	for i := range scale {
		scale[i] = math.Sqrt(scale[i] / n)
		if scale[i] == 0 {
			scale[i] = 1
		}
	}
	return mean, scale
}

func nonFinite(x float64) bool {
	return math.IsNaN(x) || math.IsInf(x, 0)
}
