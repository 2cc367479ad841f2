package dedup

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	cases := []struct {
		name    string
		a, b    string
		atLeast float64
		below   float64
	}{
		{"identical", "在宅勤務は好きですか？", "在宅勤務は好きですか？", 0.999, 1.001},
		{"punctuation and spacing", "在宅勤務は 好きですか？", "在宅勤務は好きですか", 0.999, 1.001},
		{"case", "Do you like Go?", "do you like go", 0.999, 1.001},
		{"unrelated", "在宅勤務は好きですか", "通勤時間は何分ですか", 0, 0.5},
		{"empty", "", "何か", 0, 0.001},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Similarity(tc.a, tc.b)
			if got < tc.atLeast || got >= tc.below {
				t.Errorf("Similarity(%q, %q) = %f, want in [%f, %f)", tc.a, tc.b, got, tc.atLeast, tc.below)
			}
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	a, b := "副業をしていますか", "副業をしたいと思いますか"
	if math.Abs(Similarity(a, b)-Similarity(b, a)) > 1e-9 {
		t.Error("similarity must be symmetric")
	}
}

func TestIndex_Match(t *testing.T) {
	x := NewIndex(DefaultThreshold, "在宅勤務は好きですか", "通勤時間は何分ですか")
	if x.Len() != 2 {
		t.Fatalf("expected 2 statements, got %d", x.Len())
	}

	match, sim, ok := x.Match("在宅勤務は好きですか？")
	if !ok {
		t.Fatalf("expected a match, similarity %f", sim)
	}
	if match != "在宅勤務は好きですか" {
		t.Errorf("unexpected match %q", match)
	}

	if _, _, ok := x.Match("理想の働き方を教えてください"); ok {
		t.Error("unrelated statement must not match")
	}

	x.Add("理想の働き方を教えてください")
	if _, _, ok := x.Match("理想の働き方を教えてください。"); !ok {
		t.Error("added statement must match")
	}
}

func TestIndex_Empty(t *testing.T) {
	x := NewIndex(DefaultThreshold)
	if _, _, ok := x.Match("何でも"); ok {
		t.Error("empty index must not match")
	}
}
