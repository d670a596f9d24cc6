package strategy

import "testing"

func TestScore(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Five habits for busy mornings", "Five habits for busy mornings", 1},
		{"disjoint", "hello world", "goodbye mars", 0},
		{"empty right", "hello world", "", 0},
		{"empty left", "", "hello world", 0},
		{"case and punctuation", "Hello, World!", "hello world", 1},
		{"half overlap", "a b c", "b c d", 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.a, tc.b); got != tc.want {
				t.Fatalf("Score(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestMaxScore(t *testing.T) {
	got := MaxScore("a b c", []string{"x y", "a b c d", "a b"})
	if got != 0.75 {
		t.Fatalf("MaxScore = %v, want 0.75", got)
	}
	if MaxScore("a", nil) != 0 {
		t.Fatalf("MaxScore with no candidates should be 0")
	}
}
