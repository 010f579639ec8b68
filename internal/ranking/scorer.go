// Package ranking turns index distances into bounded similarity scores and orders matches.
package ranking

import (
	"math"

	"github.com/hyperjump/resumatch/pkg/utils"
)

// ScoreDigits is the number of decimal places scores are rounded to.
const ScoreDigits = 4

// Score maps a cosine distance to a similarity score in [0, 1]: 1 - distance, clamped,
// rounded to ScoreDigits places. Undefined distances (NaN, ±Inf) score 0.
func Score(distance float64) float64 {
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0
	}
	raw := 1 - distance
	if raw < 0 {
		raw = 0
	} else if raw > 1 {
		raw = 1
	}
	return utils.Round(raw, ScoreDigits)
}
