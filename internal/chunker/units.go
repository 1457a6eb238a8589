package chunker

import (
	"fmt"
	"unicode/utf8"

	"github.com/hyperjump/lexrag/internal/tokenizer"
)

// unitSeq is a sequence of tokens or runes the sliding window moves over.
type unitSeq interface {
	Len() int
	Text(i, j int) (string, error)
	Window(i, j int) (*window, error)
}

// window is the decoded text of units [i, j) with the byte offset of each
// unit boundary inside it.
type window struct {
	text   string
	offs   []int
	prefix func(k int) (int, error)
	cache  map[int]int
}

// offset returns the byte offset of boundary k (0 <= k <= j-i), or -1.
func (w *window) offset(k int) int {
	if w.offs != nil {
		if k < 0 || k >= len(w.offs) {
			return -1
		}
		return w.offs[k]
	}
	if off, ok := w.cache[k]; ok {
		return off
	}
	off, err := w.prefix(k)
	if err != nil || off > len(w.text) {
		off = -1
	}
	w.cache[k] = off
	return off
}

type tokenSeq struct {
	ids []int
	tok tokenizer.Tokenizer
}

func (s *tokenSeq) Len() int { return len(s.ids) }

func (s *tokenSeq) Text(i, j int) (string, error) {
	text, err := s.tok.Decode(s.ids[i:j])
	if err != nil {
		return "", fmt.Errorf("%w: decode [%d, %d): %v", ErrTokenization, i, j, err)
	}
	return text, nil
}

// Window decodes each token on its own. When the pieces do not add up to the
// joint decode, offsets fall back to decoding prefixes on demand.
func (s *tokenSeq) Window(i, j int) (*window, error) {
	text, err := s.Text(i, j)
	if err != nil {
		return nil, err
	}
	offs := make([]int, 0, j-i+1)
	offs = append(offs, 0)
	total := 0
	for k := i; k < j; k++ {
		piece, err := s.tok.Decode(s.ids[k : k+1])
		if err != nil {
			offs = nil
			break
		}
		total += len(piece)
		offs = append(offs, total)
	}
	if offs != nil && total == len(text) {
		return &window{text: text, offs: offs}, nil
	}
	return &window{
		text:  text,
		cache: make(map[int]int),
		prefix: func(k int) (int, error) {
			p, err := s.tok.Decode(s.ids[i : i+k])
			return len(p), err
		},
	}, nil
}

type runeSeq struct {
	runes []rune
}

func newRuneSeq(text string) *runeSeq {
	return &runeSeq{runes: []rune(text)}
}

func (s *runeSeq) Len() int { return len(s.runes) }

func (s *runeSeq) Text(i, j int) (string, error) {
	return string(s.runes[i:j]), nil
}

func (s *runeSeq) Window(i, j int) (*window, error) {
	offs := make([]int, 0, j-i+1)
	offs = append(offs, 0)
	total := 0
	for _, r := range s.runes[i:j] {
		total += utf8.RuneLen(r)
		offs = append(offs, total)
	}
	return &window{text: string(s.runes[i:j]), offs: offs}, nil
}
