// Package config loads the lexrag YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/lexrag/internal/chunker"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// TokenizerConfig selects the tokenizer chunk sizes are measured with.
type TokenizerConfig struct {
	Kind     string `yaml:"kind"`     // bpe, huggingface or runes
	Encoding string `yaml:"encoding"` // tiktoken encoding for bpe
	Path     string `yaml:"path"`     // tokenizer.json for huggingface
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // mock or onnx
	ModelPath  string        `yaml:"model_path"`
	Dimensions int           `yaml:"dimensions"`
	MaxTokens  int           `yaml:"max_tokens"`
	BatchSize  int           `yaml:"batch_size"`
	CacheSize  int           `yaml:"cache_size"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// ChunkingConfig mirrors chunker.Config. PreserveStructure defaults to true
// when unset.
type ChunkingConfig struct {
	MaxUnit           int    `yaml:"max_unit"`
	OverlapUnit       *int   `yaml:"overlap_unit"`
	PreserveStructure *bool  `yaml:"preserve_structure"`
	Unit              string `yaml:"unit"`
	MaxChunks         int    `yaml:"max_chunks"`
	MinSectionSize    int    `yaml:"min_section_size"`
}

// ChunkerConfig converts to the chunker's configuration.
func (c ChunkingConfig) ChunkerConfig() chunker.Config {
	cfg := chunker.Config{
		MaxUnit:           c.MaxUnit,
		OverlapUnit:       chunker.DefaultOverlap(c.MaxUnit),
		PreserveStructure: true,
		Unit:              c.Unit,
		MaxChunks:         c.MaxChunks,
		MinSectionSize:    c.MinSectionSize,
	}
	if c.OverlapUnit != nil {
		cfg.OverlapUnit = *c.OverlapUnit
	}
	if c.PreserveStructure != nil {
		cfg.PreserveStructure = *c.PreserveStructure
	}
	return cfg.Normalize()
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	DefaultLimit   int     `yaml:"default_limit"`
	MaxLimit       int     `yaml:"max_limit"`
	TopKCandidates int     `yaml:"top_k_candidates"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
}

// IngestConfig holds pipeline settings.
type IngestConfig struct {
	Concurrency       int    `yaml:"concurrency"`
	DocumentURLFormat string `yaml:"document_url_format"`
}

// WatchConfig holds drop-folder settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults and
// expands paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	if cfg.Tokenizer.Path != "" {
		cfg.Tokenizer.Path = expandPath(cfg.Tokenizer.Path, configDir)
	}
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate rejects unknown enumerations.
func (c *Config) Validate() error {
	switch c.Tokenizer.Kind {
	case "bpe", "huggingface", "runes":
	default:
		return fmt.Errorf("invalid tokenizer kind %q", c.Tokenizer.Kind)
	}
	switch c.Embedding.Provider {
	case "mock", "onnx":
	default:
		return fmt.Errorf("invalid embedding provider %q", c.Embedding.Provider)
	}
	switch c.Chunking.Unit {
	case chunker.UnitToken, chunker.UnitChar:
	default:
		return fmt.Errorf("invalid chunking unit %q", c.Chunking.Unit)
	}
	if c.Tokenizer.Kind == "huggingface" && c.Tokenizer.Path == "" {
		return fmt.Errorf("tokenizer.path is required for the huggingface tokenizer")
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir, "~/" to the home directory; other relative paths
// are relative to the home directory too.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
