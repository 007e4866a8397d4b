package adapt

import (
	"math"
	"testing"
)

func TestScoreAdaptation(t *testing.T) {
	constraints := PlatformConstraints{MaxTextLength: 280, HashtagLimit: 5}

	cases := []struct {
		name     string
		original string
		final    string
		hashtags int
		want     float64
	}{
		{"within limit only", "same text", "same text", 0, 0.8},
		{"limit and hashtags", "post #go", "post #go", 1, 0.9},
		{"all bonuses capped", "original long text", "shorter #go", 1, 1.0},
		{"changed but over limit", "x", string(make([]byte, 300)), 0, 0.8},
		{"too many hashtags", "a #1 #2 #3 #4 #5 #6", "a #1 #2 #3 #4 #5 #6", 6, 0.8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scoreAdaptation(tc.original, tc.final, tc.hashtags, constraints)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("expected %.2f, got %.2f", tc.want, got)
			}
		})
	}
}
