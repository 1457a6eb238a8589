// Package indexer runs the ingestion pipeline: bundle parsing, fragment
// indexing, chunking, embedding and storage.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/lexrag/internal/chunker"
	"github.com/hyperjump/lexrag/internal/config"
	"github.com/hyperjump/lexrag/internal/contents"
	"github.com/hyperjump/lexrag/internal/docindex"
	"github.com/hyperjump/lexrag/internal/embedding"
	"github.com/hyperjump/lexrag/internal/keyword"
	"github.com/hyperjump/lexrag/internal/legalhtml"
	"github.com/hyperjump/lexrag/internal/metrics"
	"github.com/hyperjump/lexrag/internal/models"
	"github.com/hyperjump/lexrag/internal/records"
	"github.com/hyperjump/lexrag/internal/storage"
	"github.com/hyperjump/lexrag/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"

	policyStructural = "structural"
	policyWindow     = "window"
	policyParagraph  = "paragraph"
)

// Result summarizes one ingested document.
type Result struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	SourcePath string `json:"source_path,omitempty"`
	Fragments  int    `json:"fragments"`
	Rejected   int    `json:"rejected"`
	Warnings   int    `json:"warnings"`
	Errors     int    `json:"errors"`
	Records    int    `json:"records"`
	Skipped    bool   `json:"skipped,omitempty"`
}

// Indexer writes documents into storage, the keyword index and the vector index.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.Index
	keywordIndex keyword.Index
	chunker      *chunker.Chunker
	config       *config.Config
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.Index,
	keywordIndex keyword.Index,
	chunker *chunker.Chunker,
	cfg *config.Config,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		chunker:      chunker,
		config:       cfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

// IngestDocument indexes one bundle, replacing any previous version of the
// same document.
func (idx *Indexer) IngestDocument(ctx context.Context, b *Bundle) (*Result, error) {
	return idx.ingest(ctx, b, nil)
}

func (idx *Indexer) ingest(ctx context.Context, b *Bundle, meta map[string]string) (_ *Result, err error) {
	started := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RecordDocument(status, time.Since(started).Seconds())
	}()

	a, err := Analyze(b, idx.logger)
	if err != nil {
		return nil, err
	}
	doc := a.Document
	doc.DocumentURL = records.DocumentURL(idx.config.Ingest.DocumentURLFormat, doc.Hash)
	doc.Metadata = meta
	log := idx.logger.With(zap.String("doc_id", doc.ID))

	for _, issue := range a.Report.Errors {
		log.Error("fragment index error", zap.Int("handle", int(issue.Handle)), zap.String("issue", issue.Message))
	}
	for _, issue := range a.Report.Warnings {
		log.Warn("fragment index warning", zap.Int("handle", int(issue.Handle)), zap.String("issue", issue.Message))
	}
	metrics.RecordValidation(len(a.Report.Errors), len(a.Report.Warnings))

	recs, err := idx.buildRecords(doc, a.Index)
	if err != nil {
		return nil, err
	}
	doc.Chunks = len(recs)

	texts := make([]string, len(recs))
	for i, r := range recs {
		texts[i] = r.EmbeddingText
	}
	vecs, err := embedding.EmbedAll(ctx, idx.embedder, texts, idx.config.Embedding.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	entries := make([]vector.Entry, len(recs))
	for i, r := range recs {
		r.Embedding = vecs[i]
		entries[i] = vector.Entry{ID: r.ID, DocumentID: doc.ID, Vector: vecs[i]}
	}

	if err := idx.storage.SaveDocument(ctx, doc, recs); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	if _, err := idx.vectorIndex.RemoveDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to clear vector index: %w", err)
	}
	if err := idx.vectorIndex.Add(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to index vectors: %w", err)
	}
	if _, err := idx.keywordIndex.DeleteDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to clear keyword index: %w", err)
	}
	if err := idx.keywordIndex.IndexRecords(ctx, recs); err != nil {
		return nil, fmt.Errorf("failed to index keywords: %w", err)
	}
	metrics.RecordFragments(a.Index.Len(), a.Rejected)

	log.Info("document ingested",
		zap.String("title", doc.Title),
		zap.Int("fragments", a.Index.Len()),
		zap.Int("rejected", a.Rejected),
		zap.Int("records", len(recs)))
	return &Result{
		DocumentID: doc.ID,
		Title:      doc.Title,
		SourcePath: doc.SourcePath,
		Fragments:  a.Index.Len(),
		Rejected:   a.Rejected,
		Warnings:   len(a.Report.Warnings),
		Errors:     len(a.Report.Errors),
		Records:    len(recs),
	}, nil
}

// buildRecords chunks the own text of every fragment in walk order.
func (idx *Indexer) buildRecords(doc *models.Document, di *docindex.Index[contents.Section]) ([]*models.ChunkRecord, error) {
	var recs []*models.ChunkRecord
	var walkErr error
	di.Walk(func(h docindex.Handle, _ int) bool {
		own := contents.OwnParagraphs(di, h)
		if len(own) == 0 {
			return true
		}
		chunks, err := idx.chunkParagraphs(own)
		if err != nil {
			walkErr = fmt.Errorf("fragment %s: %w", di.BreadcrumbOf(h), err)
			return false
		}
		recs = append(recs, records.Build(doc, records.SourceOf(di, h), chunks)...)
		return true
	})
	return recs, walkErr
}

func (idx *Indexer) chunkParagraphs(paras []legalhtml.Paragraph) ([]chunker.Chunk, error) {
	blocks := make([]chunker.Block, len(paras))
	for i, p := range paras {
		blocks[i] = chunker.Block{Classes: p.Classes, Text: p.Text}
	}
	return idx.chunkBlocks(blocks)
}

// ChunkText splits raw text with the configured policy. Blank-line separated
// paragraphs are the blocks of the structural policy.
func (idx *Indexer) ChunkText(text string) ([]chunker.Chunk, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	cfg := idx.chunker.Config()
	if !cfg.PreserveStructure {
		chunks, err := idx.chunker.Split(text)
		if err == nil {
			recordChunks(policyOf(cfg), chunks)
		}
		return chunks, err
	}
	var blocks []chunker.Block
	for _, p := range strings.Split(text, "\n\n") {
		blocks = append(blocks, chunker.Block{Text: p})
	}
	return idx.chunkBlocks(blocks)
}

func (idx *Indexer) chunkBlocks(blocks []chunker.Block) ([]chunker.Chunk, error) {
	cfg := idx.chunker.Config()
	var (
		chunks []chunker.Chunk
		err    error
	)
	if cfg.PreserveStructure {
		chunks, err = idx.chunker.SplitSections(chunker.BuildSections(blocks, cfg.MinSectionSize))
	} else {
		texts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if t := strings.TrimSpace(b.Text); t != "" {
				texts = append(texts, t)
			}
		}
		chunks, err = idx.chunker.Split(strings.Join(texts, "\n\n"))
	}
	if err != nil {
		return nil, err
	}
	recordChunks(policyOf(cfg), chunks)
	return chunks, nil
}

func policyOf(cfg chunker.Config) string {
	switch {
	case cfg.PreserveStructure:
		return policyStructural
	case cfg.Unit == chunker.UnitChar:
		return policyParagraph
	}
	return policyWindow
}

func recordChunks(policy string, chunks []chunker.Chunk) {
	overlaps := 0
	for _, c := range chunks {
		if c.IsOverlap {
			overlaps++
		}
	}
	metrics.RecordChunks(policy, len(chunks), overlaps)
}

// IngestBatch ingests bundles concurrently, at most Ingest.Concurrency at a
// time. A failing bundle does not stop the others; its result is nil and its
// error is joined into the returned error.
func (idx *Indexer) IngestBatch(ctx context.Context, bundles []*Bundle) ([]*Result, error) {
	results := make([]*Result, len(bundles))
	errs := make([]error, len(bundles))
	var g errgroup.Group
	g.SetLimit(max(idx.config.Ingest.Concurrency, 1))
	for i, b := range bundles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			res, err := idx.IngestDocument(ctx, b)
			if err != nil {
				errs[i] = fmt.Errorf("bundle %d (%s): %w", i, b.DocumentID(), err)
				idx.logger.Error("ingest failed", zap.Int("bundle", i), zap.Error(err))
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// IngestFile reads a bundle file and ingests it. A file already ingested with
// the same mtime and size is skipped.
func (idx *Indexer) IngestFile(ctx context.Context, path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	if doc, ok := idx.unchanged(ctx, absPath, info); ok {
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return &Result{DocumentID: doc.ID, Title: doc.Title, SourcePath: absPath,
			Fragments: doc.Fragments, Records: doc.Chunks, Skipped: true}, nil
	}

	b, err := LoadBundle(absPath)
	if err != nil {
		return nil, err
	}
	res, err := idx.ingest(ctx, b, map[string]string{
		metaKeySourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
		metaKeySourceSize:  strconv.FormatInt(info.Size(), 10),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return res, nil
}

// unchanged returns the stored document of absPath when its recorded mtime
// and size match info.
func (idx *Indexer) unchanged(ctx context.Context, absPath string, info os.FileInfo) (*models.Document, bool) {
	doc, err := idx.storage.GetDocumentBySourcePath(ctx, absPath)
	if err != nil || doc.Metadata == nil {
		return nil, false
	}
	mtime, _ := strconv.ParseInt(doc.Metadata[metaKeySourceMtime], 10, 64)
	size, _ := strconv.ParseInt(doc.Metadata[metaKeySourceSize], 10, 64)
	return doc, mtime == info.ModTime().UnixNano() && size == info.Size()
}

// IngestDirectory walks dir recursively and ingests every regular file whose
// extension is in allowedExts (all files when empty). It returns the results
// of the files that succeeded and the joined errors of those that did not.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, allowedExts []string) ([]*Result, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	var paths []string
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !ExtensionAllowed(path, allowedExts) {
			return nil
		}
		if finfo, statErr := os.Stat(path); statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))
	var g errgroup.Group
	g.SetLimit(max(idx.config.Ingest.Concurrency, 1))
	for i, p := range paths {
		g.Go(func() error {
			results[i], errs[i] = idx.IngestFile(ctx, p)
			if errs[i] != nil {
				idx.logger.Error("ingest failed", zap.String("path", p), zap.Error(errs[i]))
			}
			return nil
		})
	}
	_ = g.Wait()

	ok := results[:0]
	for _, r := range results {
		if r != nil {
			ok = append(ok, r)
		}
	}
	return ok, errors.Join(errs...)
}

// ExtensionAllowed reports whether path has one of allowed (case-insensitive,
// with or without the dot). An empty list allows everything.
func ExtensionAllowed(path string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
			return true
		}
	}
	return false
}

// DeleteDocument removes a document from all indices and storage.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	if _, err := idx.storage.GetDocument(ctx, id); err != nil {
		return err
	}
	if _, err := idx.keywordIndex.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	if _, err := idx.vectorIndex.RemoveDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if err := idx.storage.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	idx.logger.Debug("indexer document deleted", zap.String("id", id))
	return nil
}

// DeleteFile removes the document ingested from path. A path that was never
// ingested is not an error.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	doc, err := idx.storage.GetDocumentBySourcePath(ctx, absPath)
	if errors.Is(err, storage.ErrNotFound) {
		idx.logger.Debug("no document for removed file", zap.String("path", absPath))
		return nil
	}
	if err != nil {
		return err
	}
	return idx.DeleteDocument(ctx, doc.ID)
}
