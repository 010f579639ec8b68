package models

// Match is a single ranked resume. Score is in [0,1] and never NaN.
type Match struct {
	DocumentID string  `json:"resume_id"`
	Score      float64 `json:"score"`
}

// MatchResponse is the response for a match request.
type MatchResponse struct {
	Matches []Match `json:"matches"`
}

// Stats describes the contents of the vector index.
type Stats struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// Status summarizes the service state for the status endpoint and CLI.
type Status struct {
	Documents      int64  `json:"documents"`
	Vectors        int    `json:"vectors"`
	IndexType      string `json:"index_type"`
	Dimensions     int    `json:"dimensions"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
}
