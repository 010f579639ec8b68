package ranking

import (
	"math"
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{"close", 0.2, 0.8},
		{"identical", 0, 1},
		{"orthogonal", 1, 0},
		{"opposite", 2, 0},
		{"beyond range", 1.3, 0},
		{"negative distance", -0.5, 1},
		{"rounded", 0.123456, 0.8765},
		{"rounds up to one", 0.00004, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.distance); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Score(%v)=%v, want %v", tt.distance, got, tt.want)
			}
		})
	}
}

func TestScore_Undefined(t *testing.T) {
	for _, d := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := Score(d); got != 0 {
			t.Errorf("Score(%v)=%v, want 0", d, got)
		}
	}
}

func TestScore_Bounded(t *testing.T) {
	for d := -3.0; d <= 3.0; d += 0.01 {
		s := Score(d)
		if s < 0 || s > 1 || math.IsNaN(s) {
			t.Fatalf("Score(%v)=%v out of [0,1]", d, s)
		}
	}
}
