package chunker

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const paragraphSeparator = "\n\n"

// SplitParagraphs packs blank-line separated paragraphs into chunks of at
// most MaxUnit runes. Each closed chunk followed by more text gets an overlap
// chunk of its trailing paragraphs, at most OverlapUnit runes long. Longer
// paragraphs go through the rune window. Counts are in runes.
func (c *Chunker) SplitParagraphs(text string) ([]Chunk, error) {
	var paras []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), paragraphSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	chunks := []Chunk{}
	if len(paras) == 0 {
		return chunks, nil
	}

	limit := c.cfg.MaxUnit
	var buf []string
	size := 0

	emit := func(parts []string, overlap bool) {
		content := strings.Join(parts, paragraphSeparator)
		n := utf8.RuneCountInString(content)
		chunks = append(chunks, Chunk{
			Content:    content,
			TokenCount: n,
			CharCount:  n,
			IsOverlap:  overlap,
		})
	}
	flush := func(more bool) {
		if len(buf) == 0 {
			return
		}
		emit(buf, false)
		if more {
			if tail := c.paragraphOverlap(buf); len(tail) > 0 {
				emit(tail, true)
			}
		}
		buf, size = nil, 0
	}

	for _, p := range paras {
		n := utf8.RuneCountInString(p)
		if n > limit {
			flush(true)
			pieces, err := c.slide(newRuneSeq(p), limit)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, pieces...)
			continue
		}
		grown := size + n
		if len(buf) > 0 {
			grown += utf8.RuneCountInString(paragraphSeparator)
		}
		if len(buf) > 0 && grown > limit {
			flush(true)
			grown = n
		}
		buf = append(buf, p)
		size = grown
	}
	flush(false)

	if len(chunks) > c.cfg.MaxChunks {
		c.logger.Warn("chunk limit reached, truncating",
			zap.Int("max_chunks", c.cfg.MaxChunks),
			zap.Int("chunks", len(chunks)))
		chunks = chunks[:c.cfg.MaxChunks]
	}
	finish(chunks)
	return chunks, nil
}

// paragraphOverlap returns the longest proper suffix of buf whose joined
// length fits in OverlapUnit runes.
func (c *Chunker) paragraphOverlap(buf []string) []string {
	if c.cfg.OverlapUnit <= 0 || len(buf) < 2 {
		return nil
	}
	sep := utf8.RuneCountInString(paragraphSeparator)
	size, from := 0, len(buf)
	for i := len(buf) - 1; i >= 1; i-- {
		n := utf8.RuneCountInString(buf[i])
		if from < len(buf) {
			n += sep
		}
		if size+n > c.cfg.OverlapUnit {
			break
		}
		size += n
		from = i
	}
	return buf[from:]
}
