package config

import (
	"time"

	"github.com/hyperjump/lexrag/internal/chunker"
	"github.com/hyperjump/lexrag/internal/records"
)

const dataDir = "/usr/local/var/lexrag/data"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = dataDir + "/db/lexrag.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = dataDir + "/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = dataDir + "/indices/vectors.bin"
	}
	if cfg.Tokenizer.Kind == "" {
		cfg.Tokenizer.Kind = "bpe"
	}
	if cfg.Tokenizer.Kind == "bpe" && cfg.Tokenizer.Encoding == "" {
		cfg.Tokenizer.Encoding = "cl100k_base"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = chunker.DefaultMaxUnit
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 16
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.CacheTTL == 0 {
		cfg.Embedding.CacheTTL = time.Hour
	}
	if cfg.Chunking.MaxUnit == 0 {
		cfg.Chunking.MaxUnit = chunker.DefaultMaxUnit
	}
	if cfg.Chunking.Unit == "" {
		cfg.Chunking.Unit = chunker.UnitToken
	}
	if cfg.Chunking.MaxChunks == 0 {
		cfg.Chunking.MaxChunks = chunker.DefaultMaxChunks
	}
	if cfg.Chunking.MinSectionSize == 0 {
		cfg.Chunking.MinSectionSize = chunker.DefaultMinSectionSize
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.KeywordWeight = 0.4
		cfg.Search.SemanticWeight = 0.6
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 4
	}
	if cfg.Ingest.DocumentURLFormat == "" {
		cfg.Ingest.DocumentURLFormat = records.DefaultDocumentURLFormat
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".json"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
