package embedding

import (
	"fmt"
	"time"

	"github.com/hyperjump/lexrag/internal/tokenizer"
	"go.uber.org/zap"
)

// Options selects and configures an embedder.
type Options struct {
	Provider   string
	ModelPath  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
	CacheTTL   time.Duration
	Tokenizer  tokenizer.Tokenizer
}

// New builds the configured embedder wrapped in a cache.
func New(opts Options, logger *zap.Logger) (Embedder, error) {
	var inner Embedder
	switch opts.Provider {
	case "", ProviderMock:
		inner = NewMockEmbedder(opts.Dimensions)
	case ProviderONNX:
		hf, ok := opts.Tokenizer.(*tokenizer.HuggingFace)
		if !ok {
			return nil, fmt.Errorf("onnx embedder needs the huggingface tokenizer, got %T", opts.Tokenizer)
		}
		e, err := NewONNXEmbedder(opts.ModelPath, hf, opts.Dimensions, opts.MaxTokens)
		if err != nil {
			return nil, err
		}
		inner = e
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
	return NewCachedEmbedder(inner, opts.CacheSize, opts.CacheTTL, logger), nil
}
