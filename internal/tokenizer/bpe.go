package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the tiktoken encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

func init() {
	// Offline loader: no network access when resolving encodings.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// BPE tokenizes with tiktoken.
type BPE struct {
	tk *tiktoken.Tiktoken
}

// NewBPE loads the named encoding, cl100k_base by default.
func NewBPE(encoding string) (*BPE, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding %q: %w", encoding, err)
	}
	return &BPE{tk: tk}, nil
}

func (b *BPE) Encode(text string) ([]int, error) {
	if text == "" {
		return nil, nil
	}
	return b.tk.Encode(text, nil, nil), nil
}

func (b *BPE) Decode(ids []int) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	return b.tk.Decode(ids), nil
}
