// Package vector stores chunk embeddings and answers nearest-neighbour queries.
package vector

import "context"

// Entry is one embedded chunk record.
type Entry struct {
	ID         string
	DocumentID string
	Vector     []float32
}

// Filter restricts a search. The zero value matches everything.
type Filter struct {
	DocumentID string
}

func (f Filter) match(docID string) bool {
	return f.DocumentID == "" || f.DocumentID == docID
}

// Index defines vector storage and similarity search.
type Index interface {
	Add(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, query []float32, k int, filter Filter) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	RemoveDocument(ctx context.Context, docID string) (int, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single vector hit. Score is the raw inner product.
type Result struct {
	ID         string
	DocumentID string
	Score      float64
}
