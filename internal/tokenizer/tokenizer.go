// Package tokenizer provides the token encoders the chunker measures text with.
package tokenizer

import (
	"fmt"
	"unicode/utf8"
)

// Tokenizer converts text to token ids and back. Implementations must be
// deterministic and safe for concurrent use.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
}

const (
	KindBPE         = "bpe"
	KindHuggingFace = "huggingface"
	KindRunes       = "runes"
)

// New builds a tokenizer by kind. encoding applies to bpe, path to huggingface.
func New(kind, encoding, path string) (Tokenizer, error) {
	switch kind {
	case "", KindBPE:
		return NewBPE(encoding)
	case KindHuggingFace:
		return NewHuggingFace(path)
	case KindRunes:
		return Runes{}, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer kind %q", kind)
	}
}

// Count returns the number of tokens in text.
func Count(t Tokenizer, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	ids, err := t.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Runes treats every rune as one token; the id is the code point.
type Runes struct{}

func (Runes) Encode(text string) ([]int, error) {
	ids := make([]int, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids, nil
}

func (Runes) Decode(ids []int) (string, error) {
	buf := make([]rune, len(ids))
	for i, id := range ids {
		if id < 0 || id > utf8.MaxRune {
			return "", fmt.Errorf("invalid rune id %d", id)
		}
		buf[i] = rune(id)
	}
	return string(buf), nil
}
