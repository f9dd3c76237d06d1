package mood

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/justestif/melora/internal/catalog"
)

// Strategy names the classification backend that produced a table's moods.
type Strategy string

const (
	// StrategyRule means moods came from the valence/energy quadrant rule.
	StrategyRule Strategy = "rule-based"
	// StrategyModel means moods came from a trained classifier.
	StrategyModel Strategy = "model-based"
)

// Errors returned while applying a model.
var (
	ErrShapeMismatch = errors.New("feature shape mismatch")
	ErrNonFinite     = errors.New("non-finite feature value")
	ErrUnknownLabel  = errors.New("unknown label")
)

// Predictor maps feature rows to label ids.
type Predictor interface {
	Predict(rows [][]float64) ([]int, error)
}

// Decoder maps label ids back to label names.
type Decoder interface {
	InverseTransform(ids []int) ([]string, error)
}

// Classifier is either rule-based (zero value) or model-based.
// It is chosen once per catalog load.
type Classifier struct {
	model   Predictor
	decoder Decoder
	logger  zerolog.Logger
}

// RuleBased returns the quadrant-rule classifier.
func RuleBased() Classifier {
	return Classifier{logger: zerolog.Nop()}
}

// ModelBased returns a classifier backed by a trained model and its label
// decoder. A failure while applying it falls back to the rule.
func ModelBased(model Predictor, decoder Decoder, logger zerolog.Logger) Classifier {
	return Classifier{model: model, decoder: decoder, logger: logger}
}

// Strategy reports which backend Classify will try first.
func (c Classifier) Strategy() Strategy {
	if c.model != nil && c.decoder != nil {
		return StrategyModel
	}
	return StrategyRule
}

// Classify returns one mood per track along with the strategy that produced
// them. The whole slice is labelled by a single strategy.
func (c Classifier) Classify(tracks []catalog.Track) ([]catalog.Mood, Strategy) {
	if c.Strategy() == StrategyModel {
		moods, err := c.classifyModel(tracks)
		if err == nil {
			return moods, StrategyModel
		}
		c.logger.Warn().Err(err).Msg("model classification failed, falling back to rule-based")
	}
	return classifyRule(tracks), StrategyRule
}

func (c Classifier) classifyModel(tracks []catalog.Track) (moods []catalog.Mood, err error) {
	// A panicking model counts as a failed apply.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()

	rows := make([][]float64, len(tracks))
	for i, t := range tracks {
		v := t.Features.Vector()
		if j := slices.IndexFunc(v, nonFinite); j >= 0 {
			return nil, fmt.Errorf("%w: row %d %s", ErrNonFinite, i, catalog.FeatureNames[j])
		}
		rows[i] = v
	}

	ids, err := c.model.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("predicting: %w", err)
	}
	if len(ids) != len(tracks) {
		return nil, fmt.Errorf("%w: %d predictions for %d rows", ErrShapeMismatch, len(ids), len(tracks))
	}

	names, err := c.decoder.InverseTransform(ids)
	if err != nil {
		return nil, fmt.Errorf("decoding labels: %w", err)
	}
	if len(names) != len(ids) {
		return nil, fmt.Errorf("%w: %d labels for %d ids", ErrShapeMismatch, len(names), len(ids))
	}

	moods = make([]catalog.Mood, len(names))
	for i, name := range names {
		m, ok := catalog.ParseMood(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, name)
		}
		moods[i] = m
	}
	return moods, nil
}

func classifyRule(tracks []catalog.Track) []catalog.Mood {
	moods := make([]catalog.Mood, len(tracks))
	for i, t := range tracks {
		moods[i] = Rule(t.Features.Valence, t.Features.Energy)
	}
	return moods
}
