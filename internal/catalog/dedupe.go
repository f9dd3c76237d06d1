package catalog

import (
	"cmp"
	"slices"
)

// Dedupe keeps one row per (track name, artists) pair: the most popular one.
// Rows are ordered by popularity descending; equal popularity keeps input
// order. The input slice is not modified.
func Dedupe(rows []Track) []Track {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b Track) int {
		return cmp.Compare(b.Popularity, a.Popularity)
	})

	seen := make(map[Key]struct{}, len(sorted))
	out := make([]Track, 0, len(sorted))
	for _, t := range sorted {
		k := t.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return slices.Clip(out)
}
