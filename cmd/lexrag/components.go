package main

import (
	"errors"
	"fmt"

	"github.com/hyperjump/lexrag/internal/chunker"
	"github.com/hyperjump/lexrag/internal/config"
	"github.com/hyperjump/lexrag/internal/embedding"
	"github.com/hyperjump/lexrag/internal/indexer"
	"github.com/hyperjump/lexrag/internal/keyword"
	"github.com/hyperjump/lexrag/internal/search"
	"github.com/hyperjump/lexrag/internal/storage"
	"github.com/hyperjump/lexrag/internal/tokenizer"
	"github.com/hyperjump/lexrag/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Config       *config.Config
	Logger       *zap.Logger
	Tokenizer    tokenizer.Tokenizer
	Chunker      *chunker.Chunker
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  *vector.MemoryIndex
	KeywordIndex *keyword.BleveIndex
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

// newChunker builds the tokenizer and chunker described by cfg.
func newChunker(cfg *config.Config, logger *zap.Logger) (tokenizer.Tokenizer, *chunker.Chunker, error) {
	tok, err := tokenizer.New(cfg.Tokenizer.Kind, cfg.Tokenizer.Encoding, cfg.Tokenizer.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	ch := chunker.New(cfg.Chunking.ChunkerConfig(), tok, chunker.WithLogger(logger))
	return tok, ch, nil
}

// newStatelessIndexer returns an indexer that can only chunk text.
func newStatelessIndexer(cfg *config.Config, logger *zap.Logger) (*indexer.Indexer, error) {
	_, ch, err := newChunker(cfg, logger)
	if err != nil {
		return nil, err
	}
	return indexer.NewIndexer(nil, nil, nil, nil, ch, cfg, indexer.WithLogger(logger)), nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (_ *Components, err error) {
	c := &Components{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close(false)
		}
	}()

	if c.Tokenizer, c.Chunker, err = newChunker(cfg, logger); err != nil {
		return nil, err
	}
	if c.Storage, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Embedder, err = embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		ModelPath:  cfg.Embedding.ModelPath,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
		CacheTTL:   cfg.Embedding.CacheTTL,
		Tokenizer:  c.Tokenizer,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if c.VectorIndex, err = vector.NewMemoryIndex(c.Embedder.Dimensions()); err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if err := c.VectorIndex.Load(cfg.Storage.VectorIndexPath); err != nil {
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}
	logger.Info("vector index loaded",
		zap.String("path", cfg.Storage.VectorIndexPath),
		zap.Int("size", c.VectorIndex.Size()))
	if c.KeywordIndex, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath); err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	c.Engine = search.NewEngine(c.Storage, c.Embedder, c.VectorIndex, c.KeywordIndex, &cfg.Search, logger)
	c.Indexer = indexer.NewIndexer(c.Storage, c.Embedder, c.VectorIndex, c.KeywordIndex, c.Chunker, cfg,
		indexer.WithLogger(logger))
	return c, nil
}

// Close releases every component. With save set the vector index is
// written back to disk first.
func (c *Components) Close(save bool) error {
	var errs []error
	if save && c.VectorIndex != nil {
		if err := c.VectorIndex.Save(c.Config.Storage.VectorIndexPath); err != nil {
			errs = append(errs, fmt.Errorf("failed to save vector index: %w", err))
		}
	}
	if c.KeywordIndex != nil {
		errs = append(errs, c.KeywordIndex.Close())
	}
	if c.VectorIndex != nil {
		errs = append(errs, c.VectorIndex.Close())
	}
	if c.Embedder != nil {
		errs = append(errs, c.Embedder.Close())
	}
	if c.Storage != nil {
		errs = append(errs, c.Storage.Close())
	}
	return errors.Join(errs...)
}
