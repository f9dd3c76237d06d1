// Package mood assigns one of the four catalog moods to every track.
package mood

import "github.com/justestif/melora/internal/catalog"

// Threshold splits low and high valence/energy. Values equal to the
// threshold count as high.
const Threshold = 0.5

// Rule classifies a track from its valence and energy using a 2x2 quadrant
// system:
//
//   - High Valence + High Energy = Happy
//   - Low Valence  + Low Energy  = Sad
//   - High Valence + Low Energy  = Calm
//   - Low Valence  + High Energy = Tense
//
// NaN compares as low, so a missing valence or energy yields Sad or Tense.
func Rule(valence, energy float64) catalog.Mood {
	highValence := valence >= Threshold
	highEnergy := energy >= Threshold

	switch {
	case highValence && highEnergy:
		return catalog.Happy
	case !highValence && !highEnergy:
		return catalog.Sad
	case highValence && !highEnergy:
		return catalog.Calm
	default: // low valence, high energy
		return catalog.Tense
	}
}

// Description returns a short blurb for a mood, used by the UI.
func Description(m catalog.Mood) string {
	switch m {
	case catalog.Happy:
		return "High-energy, positive vibes - perfect for dancing and celebrations"
	case catalog.Sad:
		return "Contemplative and introspective - ideal for quiet moments"
	case catalog.Calm:
		return "Relaxed and uplifting - great for unwinding"
	case catalog.Tense:
		return "Intense, driving energy with darker emotional tones"
	default:
		return ""
	}
}
