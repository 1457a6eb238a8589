package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/lexrag/internal/config"
	"github.com/hyperjump/lexrag/internal/embedding"
	"github.com/hyperjump/lexrag/internal/keyword"
	"github.com/hyperjump/lexrag/internal/models"
	"github.com/hyperjump/lexrag/internal/storage"
	"github.com/hyperjump/lexrag/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	sectionBoost = 2.0
	phraseBoost  = 1.5
)

// Engine runs hybrid (keyword + semantic) search over chunk records.
type Engine struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.Index
	keywordIndex keyword.Index
	config       *config.SearchConfig
	logger       *zap.Logger
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.Index,
	keywordIndex keyword.Index,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
		logger:       logger,
	}
}

// weights returns the fusion weights for the enabled retrievers. A single
// enabled retriever gets the full weight.
func (e *Engine) weights(q *models.SearchQuery) (kw, sem float64) {
	switch {
	case q.KeywordEnabled && !q.SemanticEnabled:
		return 1, 0
	case q.SemanticEnabled && !q.KeywordEnabled:
		return 0, 1
	}
	return e.config.KeywordWeight, e.config.SemanticWeight
}

// Search runs both retrievers concurrently, fuses their scores per chunk
// record and returns the top records.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(e.config.DefaultLimit, e.config.MaxLimit); err != nil {
		return nil, err
	}
	candidates := max(e.config.TopKCandidates, query.Limit)

	var (
		keywordResults  []*keyword.Result
		semanticResults []*vector.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	if query.KeywordEnabled {
		g.Go(func() error {
			results, err := e.keywordIndex.Search(gctx, query.Query, candidates, &keyword.SearchOptions{
				DocumentID:   query.DocumentID,
				SectionBoost: sectionBoost,
				PhraseBoost:  phraseBoost,
				FuzzyEnabled: query.FuzzyEnabled,
			})
			if err != nil {
				return fmt.Errorf("keyword search failed: %w", err)
			}
			keywordResults = results
			return nil
		})
	}
	if query.SemanticEnabled {
		g.Go(func() error {
			queryEmbedding, err := e.embedder.Embed(gctx, query.Query)
			if err != nil {
				return fmt.Errorf("embedding failed: %w", err)
			}
			results, err := e.vectorIndex.Search(gctx, queryEmbedding, candidates, vector.Filter{DocumentID: query.DocumentID})
			if err != nil {
				return fmt.Errorf("vector search failed: %w", err)
			}
			semanticResults = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kw, sem := e.weights(query)
	fused := Fuse(NormalizeKeywordScores(keywordResults), SemanticScores(semanticResults), kw, sem)

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ID
	}
	records, err := e.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk records: %w", err)
	}

	response := &models.SearchResponse{
		Results: make([]*models.SearchResult, 0, query.Limit),
		Query:   query.Query,
	}
	for _, f := range fused {
		rec, ok := records[f.ID]
		if !ok {
			e.logger.Debug("index hit without stored record", zap.String("id", f.ID))
			continue
		}
		if rec.IsOverlap && !query.IncludeOverlap {
			continue
		}
		if query.MinScore > 0 && f.Score < query.MinScore {
			continue
		}
		response.Total++
		if len(response.Results) < query.Limit {
			response.Results = append(response.Results, &models.SearchResult{
				Record:        rec,
				Score:         f.Score,
				KeywordScore:  f.KeywordScore,
				SemanticScore: f.SemanticScore,
				Rank:          len(response.Results) + 1,
			})
		}
	}
	response.QueryTime = time.Since(startTime).Milliseconds()

	e.logger.Debug("search complete",
		zap.String("query", query.Query),
		zap.Int("keyword_hits", len(keywordResults)),
		zap.Int("semantic_hits", len(semanticResults)),
		zap.Int("results", len(response.Results)))
	return response, nil
}
