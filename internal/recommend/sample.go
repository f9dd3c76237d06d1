package recommend

import (
	"math/rand/v2"

	"github.com/justestif/melora/internal/catalog"
)

// popularityWeight gives every track a positive weight so unpopular tracks
// can still be drawn.
func popularityWeight(t *catalog.Track) float64 {
	return float64(max(t.Popularity, 0) + 1)
}

// weightedSample draws min(k, len(items)) distinct items without
// replacement. Each draw picks among the remaining items with probability
// proportional to weight; when no remaining item has a positive weight the
// draw is uniform.
func weightedSample[T any](rng *rand.Rand, items []T, k int, weight func(T) float64) []T {
	k = min(k, len(items))
	if k <= 0 {
		return nil
	}

	remaining := make([]T, len(items))
	copy(remaining, items)
	weights := make([]float64, len(items))
	for i, it := range remaining {
		weights[i] = max(weight(it), 0)
	}

	picked := make([]T, 0, k)
	for len(picked) < k {
		idx := pick(rng, weights)
		picked = append(picked, remaining[idx])

		// swap-remove the drawn item
		last := len(remaining) - 1
		remaining[idx], weights[idx] = remaining[last], weights[last]
		remaining, weights = remaining[:last], weights[:last]
	}
	return picked
}

// pick returns an index drawn proportionally to weights.
func pick(rng *rand.Rand, weights []float64) int {
	total := 0.0
	lastPositive := -1
	for i, w := range weights {
		total += w
		if w > 0 {
			lastPositive = i
		}
	}
	if lastPositive < 0 {
		return rng.IntN(len(weights))
	}

	target := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if w > 0 && target < cumulative {
			return i
		}
	}
	return lastPositive
}
