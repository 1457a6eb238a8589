// Package storage defines the persistence interface for documents and chunk records.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/lexrag/internal/models"
)

// ErrNotFound is returned when a document or chunk record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines document and chunk record persistence operations.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentBySourcePath(ctx context.Context, path string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// SaveDocument replaces a document and all its chunk records in one transaction.
	SaveDocument(ctx context.Context, doc *models.Document, records []*models.ChunkRecord) error

	// Chunk record operations
	GetChunk(ctx context.Context, id string) (*models.ChunkRecord, error)
	GetChunks(ctx context.Context, ids []string) (map[string]*models.ChunkRecord, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.ChunkRecord, error)
	BatchCreateChunks(ctx context.Context, records []*models.ChunkRecord) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
