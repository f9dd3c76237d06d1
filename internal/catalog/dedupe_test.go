package catalog

import "testing"

func TestDedupe_KeepsMostPopular(t *testing.T) {
	rows := []Track{
		{ID: "a", Name: "X", Artists: "Y", Genre: "rock", Popularity: 10},
		{ID: "a", Name: "X", Artists: "Y", Genre: "pop", Popularity: 90},
	}

	got := Dedupe(rows)

	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].Popularity != 90 {
		t.Errorf("Popularity = %d, want 90", got[0].Popularity)
	}
	if got[0].Genre != "pop" {
		t.Errorf("Genre = %q, want %q", got[0].Genre, "pop")
	}
}

func TestDedupe_TiesKeepInputOrder(t *testing.T) {
	rows := []Track{
		{Name: "X", Artists: "Y", Genre: "first", Popularity: 50},
		{Name: "X", Artists: "Y", Genre: "second", Popularity: 50},
		{Name: "Z", Artists: "Y", Genre: "other", Popularity: 50},
	}

	got := Dedupe(rows)

	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].Genre != "first" {
		t.Errorf("kept genre %q, want %q", got[0].Genre, "first")
	}
	if got[1].Name != "Z" {
		t.Errorf("second row = %q, want %q", got[1].Name, "Z")
	}
}

func TestDedupe_Properties(t *testing.T) {
	rows := []Track{
		{Name: "A", Artists: "1", Popularity: 5},
		{Name: "A", Artists: "2", Popularity: 7},
		{Name: "A", Artists: "1", Popularity: 30},
		{Name: "B", Artists: "1", Popularity: 1},
		{Name: "A", Artists: "1", Popularity: 12},
		{Name: "B", Artists: "1", Popularity: 3},
	}

	maxByKey := make(map[Key]int)
	for _, r := range rows {
		if r.Popularity > maxByKey[r.Key()] {
			maxByKey[r.Key()] = r.Popularity
		}
	}

	got := Dedupe(rows)

	if len(got) != len(maxByKey) {
		t.Fatalf("got %d rows, want %d", len(got), len(maxByKey))
	}

	seen := make(map[Key]bool)
	for i, r := range got {
		if seen[r.Key()] {
			t.Errorf("duplicate key %+v", r.Key())
		}
		seen[r.Key()] = true

		if r.Popularity != maxByKey[r.Key()] {
			t.Errorf("%+v kept popularity %d, want %d", r.Key(), r.Popularity, maxByKey[r.Key()])
		}
		if i > 0 && got[i-1].Popularity < r.Popularity {
			t.Errorf("rows not ordered by popularity at %d", i)
		}
	}

	if rows[0].Popularity != 5 {
		t.Error("input slice was modified")
	}
}

func TestDedupe_Empty(t *testing.T) {
	if got := Dedupe(nil); len(got) != 0 {
		t.Errorf("got %d rows, want 0", len(got))
	}
}

func TestParseMood(t *testing.T) {
	tests := []struct {
		in     string
		want   Mood
		wantOK bool
	}{
		{"Happy", Happy, true},
		{"Sad", Sad, true},
		{"Calm", Calm, true},
		{"Tense", Tense, true},
		{"happy", "", false},
		{"InvalidMood", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMood(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseMood(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseMood(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
