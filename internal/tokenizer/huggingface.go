package tokenizer

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// HuggingFace wraps a tokenizer.json model, such as the BGE-M3 tokenizer.
type HuggingFace struct {
	tk *tokenizer.Tokenizer
}

// NewHuggingFace loads a tokenizer.json file.
func NewHuggingFace(path string) (*HuggingFace, error) {
	if path == "" {
		return nil, fmt.Errorf("tokenizer path is required")
	}
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}
	return &HuggingFace{tk: tk}, nil
}

// Encode returns the ids without special tokens.
func (h *HuggingFace) Encode(text string) (ids []int, err error) {
	if text == "" {
		return nil, nil
	}
	// sugarme/tokenizer panics on some inputs in its normalizers.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer panic: %v", r)
		}
	}()
	enc, err := h.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, fmt.Errorf("failed to encode text: %w", err)
	}
	return enc.Ids, nil
}

func (h *HuggingFace) Decode(ids []int) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	return h.tk.Decode(ids, true), nil
}

// EncodeWithSpecial returns ids and attention mask including special tokens,
// truncated to maxLen. The ONNX embedder feeds these to the model.
func (h *HuggingFace) EncodeWithSpecial(text string, maxLen int) (ids, mask []int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer panic: %v", r)
		}
	}()
	enc, err := h.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode text: %w", err)
	}
	n := len(enc.Ids)
	if maxLen > 0 && n > maxLen {
		n = maxLen
	}
	ids = make([]int64, n)
	mask = make([]int64, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(enc.Ids[i])
		mask[i] = 1
	}
	return ids, mask, nil
}
