package recommend

import (
	"math/rand/v2"
	"testing"
)

func TestWeightedSample_Bounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	items := []int{1, 2, 3, 4, 5}
	weight := func(i int) float64 { return float64(i) }

	tests := []struct {
		name string
		k    int
		want int
	}{
		{"zero", 0, 0},
		{"negative", -3, 0},
		{"fewer than items", 3, 3},
		{"all items", 5, 5},
		{"more than items", 9, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := weightedSample(rng, items, tt.k, weight)
			if len(got) != tt.want {
				t.Fatalf("got %d items, want %d", len(got), tt.want)
			}
			seen := make(map[int]bool)
			for _, g := range got {
				if seen[g] {
					t.Fatalf("item %d drawn twice", g)
				}
				seen[g] = true
			}
		})
	}

	if items[0] != 1 || items[4] != 5 {
		t.Error("input slice was modified")
	}
}

func TestWeightedSample_FavoursHeavyItems(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	items := []string{"light", "heavy"}
	weight := func(s string) float64 {
		if s == "heavy" {
			return 99
		}
		return 1
	}

	heavy := 0
	const draws = 2000
	for range draws {
		if weightedSample(rng, items, 1, weight)[0] == "heavy" {
			heavy++
		}
	}

	// expected 99%; anything under 90% means the weights are ignored
	if heavy < draws*9/10 {
		t.Errorf("heavy drawn %d/%d times", heavy, draws)
	}
	if heavy == draws {
		t.Error("light item never drawn; draw should not be deterministic")
	}
}

func TestWeightedSample_ZeroWeightsAreUniform(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	items := []int{0, 1, 2}
	zero := func(int) float64 { return 0 }

	counts := make(map[int]int)
	for range 300 {
		got := weightedSample(rng, items, 1, zero)
		counts[got[0]]++
	}
	for _, it := range items {
		if counts[it] == 0 {
			t.Errorf("item %d never drawn", it)
		}
	}
}

func TestPopularityWeight(t *testing.T) {
	tests := []struct {
		popularity int
		want       float64
	}{
		{0, 1},
		{50, 51},
		{100, 101},
		{-5, 1},
	}
	for _, tt := range tests {
		tr := track("x", "y", "z", tt.popularity, 0, 0)
		if got := popularityWeight(&tr); got != tt.want {
			t.Errorf("popularityWeight(%d) = %v, want %v", tt.popularity, got, tt.want)
		}
	}
}
