// Package models defines the stored documents, chunk records, queries and
// search results shared across packages.
package models

import "time"

// Document is one legal act.
type Document struct {
	ID             string            `json:"id" db:"id"`
	Hash           string            `json:"hash" db:"hash"`
	Title          string            `json:"title" db:"title"`
	Number         string            `json:"number,omitempty" db:"number"`
	SignDate       string            `json:"sign_date,omitempty" db:"sign_date"`
	PublicationURL string            `json:"publication_url,omitempty" db:"publication_url"`
	DocumentURL    string            `json:"document_url,omitempty" db:"document_url"`
	SourcePath     string            `json:"source_path,omitempty" db:"source_path"`
	Fragments      int               `json:"fragments" db:"fragments"`
	Chunks         int               `json:"chunks" db:"chunks"`
	Metadata       map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// Span is a token range [Start, End) inside a fragment's text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ChunkRecord is the unit stored for retrieval: one chunk of one fragment
// with its document context.
type ChunkRecord struct {
	ID             string    `json:"id" db:"id"`
	DocumentID     string    `json:"document_id" db:"document_id"`
	DocumentHash   string    `json:"document_hash" db:"document_hash"`
	Title          string    `json:"title" db:"title"`
	Number         string    `json:"number,omitempty" db:"number"`
	SignDate       string    `json:"sign_date,omitempty" db:"sign_date"`
	PublicationURL string    `json:"publication_url,omitempty" db:"publication_url"`
	DocumentURL    string    `json:"document_url,omitempty" db:"document_url"`
	SectionPath    string    `json:"section_path" db:"section_path"`
	Article        string    `json:"article,omitempty" db:"article"`
	FragmentStart  int       `json:"fragment_start" db:"fragment_start"`
	FragmentEnd    int       `json:"fragment_end" db:"fragment_end"`
	FragmentLevel  int       `json:"fragment_level" db:"fragment_level"`
	ContentType    string    `json:"content_type" db:"content_type"`
	Content        string    `json:"content" db:"content"`
	EmbeddingText  string    `json:"embedding_text" db:"embedding_text"`
	ChunkIndex     int       `json:"chunk_index" db:"chunk_index"`
	TotalChunks    int       `json:"total_chunks" db:"total_chunks"`
	TokenCount     int       `json:"token_count" db:"token_count"`
	CharCount      int       `json:"char_count" db:"char_count"`
	IsOverlap      bool      `json:"is_overlap" db:"is_overlap"`
	Span           *Span     `json:"span,omitempty" db:"span"`
	Links          []string  `json:"links,omitempty" db:"links"`
	Tags           []string  `json:"tags,omitempty" db:"tags"`
	Embedding      []float32 `json:"-" db:"-"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
