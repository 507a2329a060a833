package models

import "fmt"

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query      string `json:"query"`
	K          *int   `json:"k,omitempty"`
	WithScores bool   `json:"with_scores,omitempty"`
}

// Validate fills in defaultK when k is absent and rejects a non-positive k.
// Blank queries are left to the store, which answers an empty store before
// looking at the text.
func (q *QueryRequest) Validate(defaultK int) error {
	if q.K == nil {
		k := defaultK
		q.K = &k
	}
	if *q.K <= 0 {
		return fmt.Errorf("k must be positive, got %d", *q.K)
	}
	return nil
}

// Limit returns k. Call Validate first.
func (q *QueryRequest) Limit() int {
	if q.K == nil {
		return 0
	}
	return *q.K
}

// Match is one scored hit.
type Match struct {
	Position int     `json:"position"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// QueryResponse is the body of a successful POST /query. Results is never null.
type QueryResponse struct {
	Results []string `json:"results"`
	Matches []Match  `json:"matches,omitempty"`
}
