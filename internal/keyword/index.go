// Package keyword provides full-text search over chunk records.
package keyword

import (
	"context"

	"github.com/hyperjump/lexrag/internal/models"
)

// SearchOptions are optional parameters for keyword search. Nil means defaults.
type SearchOptions struct {
	// DocumentID restricts hits to one document when set.
	DocumentID string
	// SectionBoost multiplies matches in the section path and document title.
	SectionBoost float64
	// PhraseBoost adds a boosted phrase match over content when > 1.
	PhraseBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits (default 1).
	FuzzyEnabled bool
	Fuzziness    int
}

// Index defines keyword search operations.
type Index interface {
	IndexRecords(ctx context.Context, records []*models.ChunkRecord) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, ids []string) error
	DeleteDocument(ctx context.Context, docID string) (int, error)
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword hit.
type Result struct {
	ID    string
	Score float64
}
