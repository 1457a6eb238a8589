package models

// SearchResult is one ranked chunk record.
type SearchResult struct {
	Record        *ChunkRecord `json:"record"`
	Score         float64      `json:"score"`
	KeywordScore  float64      `json:"keyword_score"`
	SemanticScore float64      `json:"semantic_score"`
	Rank          int          `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}
