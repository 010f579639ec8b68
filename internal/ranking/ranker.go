package ranking

import (
	"cmp"
	"slices"

	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/internal/vector"
)

// Rank scores each neighbor and returns at most topK matches by descending score.
// Equal scores keep the order of neighbors. topK <= 0 yields an empty list.
func Rank(neighbors []vector.Neighbor, topK int) []models.Match {
	if topK <= 0 {
		return []models.Match{}
	}
	matches := make([]models.Match, len(neighbors))
	for i, n := range neighbors {
		matches[i] = models.Match{DocumentID: n.ID, Score: Score(n.Distance)}
	}
	slices.SortStableFunc(matches, func(a, b models.Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
