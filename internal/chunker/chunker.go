// Package chunker splits document text into bounded, overlapping chunks that
// end on safe boundaries where possible.
package chunker

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/hyperjump/lexrag/internal/boundary"
	"github.com/hyperjump/lexrag/internal/tokenizer"
	"go.uber.org/zap"
)

// ErrTokenization wraps failures of the tokenizer.
var ErrTokenization = errors.New("tokenization failed")

// Span is the half-open unit range [Start, End) a chunk was cut from.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk is one piece of output. TotalChunks is filled in once the whole
// input has been split.
type Chunk struct {
	Content     string   `json:"content"`
	TokenCount  int      `json:"token_count"`
	CharCount   int      `json:"char_count"`
	ChunkIndex  int      `json:"chunk_index"`
	TotalChunks int      `json:"total_chunks"`
	IsOverlap   bool     `json:"is_overlap"`
	SectionPath string   `json:"section_path,omitempty"`
	Span        *Span    `json:"span,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Chunker holds the configuration and tokenizer. It keeps no per-call state
// and may be shared between goroutines.
type Chunker struct {
	cfg    Config
	tok    tokenizer.Tokenizer
	logger *zap.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Chunker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a chunker. A nil tokenizer counts runes.
func New(cfg Config, tok tokenizer.Tokenizer, opts ...Option) *Chunker {
	if tok == nil {
		tok = tokenizer.Runes{}
	}
	c := &Chunker{
		cfg:    cfg.Normalize(),
		tok:    tok,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the normalized configuration.
func (c *Chunker) Config() Config {
	return c.cfg
}

// Split applies the configured policy to plain text: paragraph packing for
// the char unit without structure, the sliding window otherwise.
func (c *Chunker) Split(text string) ([]Chunk, error) {
	if c.cfg.Unit == UnitChar && !c.cfg.PreserveStructure {
		return c.SplitParagraphs(text)
	}
	return c.SplitText(text)
}

// SplitText splits text with the sliding window, in tokens or runes.
func (c *Chunker) SplitText(text string) ([]Chunk, error) {
	if text == "" {
		return []Chunk{}, nil
	}
	if c.cfg.Unit == UnitChar {
		return c.slide(newRuneSeq(text), c.cfg.MaxUnit)
	}
	ids, err := c.tok.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenization, err)
	}
	return c.SplitTokens(ids)
}

// SplitTokens splits an already encoded token sequence.
func (c *Chunker) SplitTokens(ids []int) ([]Chunk, error) {
	if len(ids) == 0 {
		return []Chunk{}, nil
	}
	return c.slide(&tokenSeq{ids: ids, tok: c.tok}, c.cfg.MaxUnit)
}

// slide runs the sliding window over seq. Each chunk holds at most limit units
// and starts OverlapUnit units before the end of the previous one.
func (c *Chunker) slide(seq unitSeq, limit int) ([]Chunk, error) {
	n := seq.Len()
	chunks := make([]Chunk, 0, n/limit+1)
	start := 0
	for {
		if len(chunks) >= c.cfg.MaxChunks {
			c.logger.Warn("chunk limit reached, truncating",
				zap.Int("max_chunks", c.cfg.MaxChunks),
				zap.Int("position", start),
				zap.Int("length", n))
			break
		}

		end := min(start+limit, n)
		if end < n {
			end = c.findCutoff(seq, start, end, limit)
		}

		text, err := seq.Text(start, end)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, Chunk{
			Content:    text,
			TokenCount: end - start,
			CharCount:  utf8.RuneCountInString(text),
			ChunkIndex: len(chunks),
			Span:       &Span{Start: start, End: end},
		})

		if end >= n {
			break
		}
		next := end
		if end > c.cfg.OverlapUnit {
			next = end - c.cfg.OverlapUnit
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}
	finish(chunks)
	return chunks, nil
}

// findCutoff picks the end of the window [start, end). It prefers the best
// boundary between 80% and 95% of limit, then whitespace in the last quarter,
// then the hard end.
func (c *Chunker) findCutoff(seq unitSeq, start, end, limit int) int {
	if end-start < 10 {
		return end
	}
	w, err := seq.Window(start, end)
	if err != nil {
		c.logger.Debug("boundary search skipped", zap.Error(err))
		return end
	}

	hi := min(start+limit*95/100, end)
	lo := max(start+limit*4/5, start+1)
	best, bestPos := boundary.Priority(-1), -1
	for p := hi; p >= lo; p-- {
		off := w.offset(p - start)
		if off < 0 {
			continue
		}
		pat, ok := boundary.MatchAt(w.text, off)
		if !ok {
			continue
		}
		if pat.Priority >= boundary.PrioritySentence {
			return p
		}
		if pat.Priority > best {
			best, bestPos = pat.Priority, p
		}
	}
	if bestPos >= 0 && bestPos >= start+limit/3 {
		return bestPos
	}

	floor := end - (end-start)/4
	for p := end - 1; p >= floor && p > start+limit/2; p-- {
		off := w.offset(p - start)
		if off >= 0 && boundary.SpaceAt(w.text, off) {
			return p
		}
	}
	return end
}

// finish renumbers chunks and back-fills TotalChunks.
func finish(chunks []Chunk) {
	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].TotalChunks = len(chunks)
	}
}
