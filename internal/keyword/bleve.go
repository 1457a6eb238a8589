package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/lexrag/internal/models"
)

const (
	defaultFuzziness = 1
	deletePageSize   = 1000
)

// chunkDoc is what bleve stores per chunk record.
type chunkDoc struct {
	Content     string `json:"content"`
	SectionPath string `json:"section_path"`
	Title       string `json:"title"`
	Number      string `json:"number"`
	DocumentID  string `json:"document_id"`
	ContentType string `json:"content_type"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func chunkMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Standard analyzer lowercases and splits on unicode word boundaries, which
	// is enough for Cyrillic without stemming.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	for _, f := range []string{"content", "section_path", "title"} {
		docMapping.AddFieldMappingsAt(f, text)
	}
	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keywordanalyzer.Name
	for _, f := range []string{"number", "document_id", "content_type"} {
		docMapping.AddFieldMappingsAt(f, exact)
	}

	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the mapping, remove the index directory and re-ingest.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	index, err := bleve.New(path, chunkMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemBleveIndex returns an index that lives only in memory.
func NewMemBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(chunkMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexRecords indexes records in one batch.
func (b *BleveIndex) IndexRecords(ctx context.Context, records []*models.ChunkRecord) error {
	batch := b.index.NewBatch()
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := batch.Index(r.ID, chunkDoc{
			Content:     r.Content,
			SectionPath: r.SectionPath,
			Title:       r.Title,
			Number:      r.Number,
			DocumentID:  r.DocumentID,
			ContentType: r.ContentType,
		})
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", r.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to apply batch: %w", err)
	}
	return nil
}

// Search runs the query over content, boosted section path and title, and
// returns up to limit hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	fuzziness := 0
	if opts.FuzzyEnabled {
		fuzziness = opts.Fuzziness
		if fuzziness <= 0 {
			fuzziness = defaultFuzziness
		}
	}

	clauses := []blevequery.Query{b.fieldQuery(query, "content", fuzziness, 1)}
	boost := opts.SectionBoost
	if boost <= 0 {
		boost = 1
	}
	clauses = append(clauses,
		b.fieldQuery(query, "section_path", fuzziness, boost),
		b.fieldQuery(query, "title", fuzziness, boost),
	)
	if opts.PhraseBoost > 1 && len(tokenizeQuery(query)) > 1 {
		pq := bleve.NewMatchPhraseQuery(query)
		pq.SetField("content")
		pq.SetBoost(opts.PhraseBoost)
		clauses = append(clauses, pq)
	}

	var q blevequery.Query = bleve.NewDisjunctionQuery(clauses...)
	if opts.DocumentID != "" {
		tq := bleve.NewTermQuery(opts.DocumentID)
		tq.SetField("document_id")
		q = bleve.NewConjunctionQuery(q, tq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// fieldQuery matches query in field. With fuzziness > 0 each term becomes a
// fuzzy query and any term may match.
func (b *BleveIndex) fieldQuery(query, field string, fuzziness int, boost float64) blevequery.Query {
	terms := tokenizeQuery(query)
	if fuzziness == 0 || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes records by ID.
func (b *BleveIndex) Delete(ctx context.Context, ids []string) error {
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

// DeleteDocument removes every record of docID and reports how many.
func (b *BleveIndex) DeleteDocument(ctx context.Context, docID string) (int, error) {
	removed := 0
	for {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		tq := bleve.NewTermQuery(docID)
		tq.SetField("document_id")
		req := bleve.NewSearchRequest(tq)
		req.Size = deletePageSize
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return removed, fmt.Errorf("failed to find records of %s: %w", docID, err)
		}
		if len(results.Hits) == 0 {
			return removed, nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return removed, fmt.Errorf("failed to delete records of %s: %w", docID, err)
		}
		removed += len(results.Hits)
	}
}

// DocCount returns the number of indexed records.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
