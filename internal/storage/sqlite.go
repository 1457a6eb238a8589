package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/lexrag/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		title TEXT,
		number TEXT,
		sign_date TEXT,
		publication_url TEXT,
		document_url TEXT,
		source_path TEXT,
		fragments INTEGER NOT NULL DEFAULT 0,
		chunks INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
	CREATE INDEX IF NOT EXISTS idx_documents_source_path ON documents(source_path);

	CREATE TABLE IF NOT EXISTS chunk_records (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		section_path TEXT,
		article TEXT,
		fragment_start INTEGER NOT NULL,
		fragment_end INTEGER NOT NULL,
		fragment_level INTEGER NOT NULL,
		content_type TEXT,
		content TEXT NOT NULL,
		embedding_text TEXT,
		chunk_index INTEGER NOT NULL,
		total_chunks INTEGER NOT NULL,
		token_count INTEGER NOT NULL,
		char_count INTEGER NOT NULL,
		is_overlap INTEGER NOT NULL DEFAULT 0,
		span TEXT,
		links TEXT,
		tags TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunk_records_document ON chunk_records(document_id, fragment_start, chunk_index);
	`
	_, err := db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const documentColumns = `id, hash, title, number, sign_date, publication_url, document_url,
	source_path, fragments, chunks, metadata, created_at, updated_at`

func insertDocument(ctx context.Context, ex execer, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = ex.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Hash, doc.Title, doc.Number, doc.SignDate, doc.PublicationURL, doc.DocumentURL,
		doc.SourcePath, doc.Fragments, doc.Chunks, string(metadataJSON), doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var doc models.Document
	var metadataJSON sql.NullString
	err := row.Scan(&doc.ID, &doc.Hash, &doc.Title, &doc.Number, &doc.SignDate, &doc.PublicationURL,
		&doc.DocumentURL, &doc.SourcePath, &doc.Fragments, &doc.Chunks, &metadataJSON,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

// CreateDocument inserts a document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	return insertDocument(ctx, s.db, doc)
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// GetDocumentBySourcePath returns the most recent document ingested from path.
func (s *SQLiteStorage) GetDocumentBySourcePath(ctx context.Context, path string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE source_path = ?
		 ORDER BY updated_at DESC LIMIT 1`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document from %s: %w", path, ErrNotFound)
	}
	return doc, err
}

// DeleteDocument removes a document and its chunk records.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_records WHERE document_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListDocuments returns documents with offset and limit, newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SaveDocument replaces doc and its records atomically. A failure leaves the
// previous version untouched.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *models.Document, records []*models.ChunkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_records WHERE document_id = ?`, doc.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, doc.ID); err != nil {
		return err
	}
	if err := insertDocument(ctx, tx, doc); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	if err := insertChunks(ctx, tx, records); err != nil {
		return fmt.Errorf("failed to insert chunk records: %w", err)
	}
	return tx.Commit()
}

const chunkColumns = `c.id, c.document_id, d.hash, d.title, d.number, d.sign_date, d.publication_url,
	d.document_url, c.section_path, c.article, c.fragment_start, c.fragment_end, c.fragment_level,
	c.content_type, c.content, c.embedding_text, c.chunk_index, c.total_chunks, c.token_count,
	c.char_count, c.is_overlap, c.span, c.links, c.tags, c.created_at`

const chunkFrom = ` FROM chunk_records c JOIN documents d ON d.id = c.document_id`

func scanChunk(row scanner) (*models.ChunkRecord, error) {
	var r models.ChunkRecord
	var spanJSON, linksJSON, tagsJSON sql.NullString
	err := row.Scan(&r.ID, &r.DocumentID, &r.DocumentHash, &r.Title, &r.Number, &r.SignDate,
		&r.PublicationURL, &r.DocumentURL, &r.SectionPath, &r.Article, &r.FragmentStart,
		&r.FragmentEnd, &r.FragmentLevel, &r.ContentType, &r.Content, &r.EmbeddingText,
		&r.ChunkIndex, &r.TotalChunks, &r.TokenCount, &r.CharCount, &r.IsOverlap,
		&spanJSON, &linksJSON, &tagsJSON, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if spanJSON.Valid && spanJSON.String != "" && spanJSON.String != "null" {
		r.Span = new(models.Span)
		if err := json.Unmarshal([]byte(spanJSON.String), r.Span); err != nil {
			return nil, fmt.Errorf("failed to unmarshal span: %w", err)
		}
	}
	for _, f := range []struct {
		raw sql.NullString
		dst *[]string
	}{{linksJSON, &r.Links}, {tagsJSON, &r.Tags}} {
		if f.raw.Valid && f.raw.String != "" {
			if err := json.Unmarshal([]byte(f.raw.String), f.dst); err != nil {
				return nil, fmt.Errorf("failed to unmarshal chunk record: %w", err)
			}
		}
	}
	return &r, nil
}

// GetChunk returns a chunk record by ID.
func (s *SQLiteStorage) GetChunk(ctx context.Context, id string) (*models.ChunkRecord, error) {
	r, err := scanChunk(s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+chunkFrom+` WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	return r, err
}

// GetChunks returns the records with the given IDs keyed by ID. Missing IDs
// are absent from the map.
func (s *SQLiteStorage) GetChunks(ctx context.Context, ids []string) (map[string]*models.ChunkRecord, error) {
	out := make(map[string]*models.ChunkRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+chunkFrom+` WHERE c.id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out[r.ID] = r
	}
	return out, rows.Err()
}

// GetChunksByDocumentID returns all records for a document in document order.
func (s *SQLiteStorage) GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+chunkFrom+` WHERE c.document_id = ?
		 ORDER BY c.fragment_start, c.fragment_level, c.chunk_index`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ChunkRecord
	for rows.Next() {
		r, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// BatchCreateChunks inserts multiple records in a transaction.
func (s *SQLiteStorage) BatchCreateChunks(ctx context.Context, records []*models.ChunkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := insertChunks(ctx, tx, records); err != nil {
		return err
	}
	return tx.Commit()
}

func insertChunks(ctx context.Context, tx *sql.Tx, records []*models.ChunkRecord) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunk_records (id, document_id, section_path, article, fragment_start,
			fragment_end, fragment_level, content_type, content, embedding_text, chunk_index,
			total_chunks, token_count, char_count, is_overlap, span, links, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, r := range records {
		r.CreatedAt = now
		spanJSON, err := json.Marshal(r.Span)
		if err != nil {
			return err
		}
		linksJSON, err := json.Marshal(r.Links)
		if err != nil {
			return err
		}
		tagsJSON, err := json.Marshal(r.Tags)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.DocumentID, r.SectionPath, r.Article,
			r.FragmentStart, r.FragmentEnd, r.FragmentLevel, r.ContentType, r.Content,
			r.EmbeddingText, r.ChunkIndex, r.TotalChunks, r.TokenCount, r.CharCount, r.IsOverlap,
			string(spanJSON), string(linksJSON), string(tagsJSON), r.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert chunk record %s: %w", r.ID, err)
		}
	}
	return nil
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunk records.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk_records`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
