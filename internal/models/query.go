package models

import "fmt"

// DefaultTopK is the number of matches returned when a request leaves top_k unset.
const DefaultTopK = 5

// MatchQuery is a job description to rank stored resumes against.
type MatchQuery struct {
	Text string `json:"text"`
	TopK *int   `json:"top_k,omitempty"`
}

// Validate checks the query and resolves TopK. An unset TopK becomes DefaultTopK, a TopK above
// maxTopK (when maxTopK > 0) is capped. Negative TopK is rejected. Empty text is allowed.
func (q *MatchQuery) Validate(maxTopK int) (int, error) {
	if q.TopK == nil {
		k := DefaultTopK
		if maxTopK > 0 && k > maxTopK {
			k = maxTopK
		}
		return k, nil
	}
	k := *q.TopK
	if k < 0 {
		return 0, fmt.Errorf("top_k must be >= 0, got %d", k)
	}
	if maxTopK > 0 && k > maxTopK {
		k = maxTopK
	}
	return k, nil
}
