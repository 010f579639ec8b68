package vector

import (
	"cmp"
	"math"
	"slices"

	"github.com/hyperjump/resumatch/pkg/utils"
)

// CosineSimilarity returns dot(a,b)/(|a|·|b|). The result is NaN when either vector has
// zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	return cosine(a, b, utils.L2Norm(a), utils.L2Norm(b))
}

// CosineDistance returns 1 - CosineSimilarity(a, b) (NaN when undefined).
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// cosine computes the similarity with precomputed norms.
func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	sim := utils.Dot(a, b) / (normA * normB)
	// Floating point error can push |sim| slightly past 1.
	return math.Max(-1, math.Min(1, sim))
}

// candidate is a scored entry awaiting ordering; seq is its insertion sequence.
type candidate struct {
	id   string
	dist float64
	seq  uint64
}

// compareDistance orders ascending with NaN after every number.
func compareDistance(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmp.Compare(a, b)
}

// topK sorts candidates by (distance, insertion sequence) and keeps the first k.
func topK(cands []candidate, k int) []Neighbor {
	slices.SortStableFunc(cands, func(a, b candidate) int {
		if c := compareDistance(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	if k > len(cands) {
		k = len(cands)
	}
	out := make([]Neighbor, k)
	for i := 0; i < k; i++ {
		out[i] = Neighbor{ID: cands[i].id, Distance: cands[i].dist}
	}
	return out
}
