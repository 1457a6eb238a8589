package models

import "errors"

// ErrEmptyQuery is returned by Validate for a blank query.
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchQuery is a search request over chunk records.
type SearchQuery struct {
	Query           string  `json:"query"`
	Limit           int     `json:"limit,omitempty"`
	DocumentID      string  `json:"document_id,omitempty"` // restrict to one document
	KeywordEnabled  bool    `json:"keyword_enabled,omitempty"`
	SemanticEnabled bool    `json:"semantic_enabled,omitempty"`
	IncludeOverlap  bool    `json:"include_overlap,omitempty"`
	FuzzyEnabled    bool    `json:"fuzzy,omitempty"` // tolerate typos in keyword search
	MinScore        float64 `json:"min_score,omitempty"`
}

// Validate rejects an empty query, clamps the limit into [1, maxLimit] and
// enables both retrievers when neither is requested.
func (q *SearchQuery) Validate(defaultLimit, maxLimit int) error {
	if q.Query == "" {
		return ErrEmptyQuery
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if !q.KeywordEnabled && !q.SemanticEnabled {
		q.KeywordEnabled = true
		q.SemanticEnabled = true
	}
	return nil
}
