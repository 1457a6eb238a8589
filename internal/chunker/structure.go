package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// SectionType is the structural role of a block of legal text.
type SectionType int

const (
	SectionParagraph SectionType = iota
	SectionTitle
	SectionHeader
	SectionAmendment
	SectionSignature
	SectionCitation
)

func (t SectionType) String() string {
	switch t {
	case SectionTitle:
		return "title"
	case SectionHeader:
		return "header"
	case SectionParagraph:
		return "paragraph"
	case SectionAmendment:
		return "amendment"
	case SectionSignature:
		return "signature"
	case SectionCitation:
		return "citation"
	default:
		return fmt.Sprintf("section(%d)", int(t))
	}
}

// startsChunk reports whether a section of this type closes the running chunk.
func (t SectionType) startsChunk() bool {
	return t == SectionHeader || t == SectionParagraph
}

// DocumentTag is the first tag of every structural chunk.
const DocumentTag = "legal_document"

var amendmentPhrases = []string{
	"изложить в следующей редакции",
	"дополнить",
	"внести изменения",
}

// Markers is what Classify looks at: the CSS classes of the source element
// and the start of its text.
type Markers interface {
	HasClass(name string) bool
	LeadingText() string
}

// Classify maps markers to a section type. Class markers win over text.
func Classify(m Markers) SectionType {
	switch {
	case m.HasClass("C"):
		return SectionCitation
	case m.HasClass("T"):
		return SectionTitle
	case m.HasClass("H"):
		return SectionHeader
	case m.HasClass("I"):
		return SectionSignature
	}
	lead := strings.ToLower(m.LeadingText())
	for _, phrase := range amendmentPhrases {
		if strings.Contains(lead, phrase) {
			return SectionAmendment
		}
	}
	return SectionParagraph
}

// leadingRunes bounds the text inspected for amendment phrases.
const leadingRunes = 200

// Block is one source element: its classes and plain text.
type Block struct {
	Classes []string
	Text    string
}

func (b Block) HasClass(name string) bool {
	for _, c := range b.Classes {
		if c == name {
			return true
		}
	}
	return false
}

func (b Block) LeadingText() string {
	if utf8.RuneCountInString(b.Text) <= leadingRunes {
		return b.Text
	}
	return string([]rune(b.Text)[:leadingRunes])
}

// Section is a classified block of text.
type Section struct {
	Type    SectionType
	Level   int
	Heading string
	Content string
}

func levelOf(t SectionType) int {
	switch t {
	case SectionHeader:
		return 1
	case SectionParagraph:
		return 2
	default:
		return 3
	}
}

// BuildSections classifies blocks, drops blank ones and merges sections
// shorter than minSize runes into a preceding one of the same type and level.
func BuildSections(blocks []Block, minSize int) []Section {
	sections := make([]Section, 0, len(blocks))
	for _, b := range blocks {
		text := strings.TrimSpace(strings.ReplaceAll(b.Text, "\u00a0", " "))
		if text == "" {
			continue
		}
		t := Classify(b)
		s := Section{Type: t, Level: levelOf(t), Content: text}
		if t == SectionHeader {
			s.Heading = text
		}
		sections = append(sections, s)
	}
	return MergeSmallSections(sections, minSize)
}

// MergeSmallSections appends each section shorter than minSize runes to the
// previous one when type and level match.
func MergeSmallSections(sections []Section, minSize int) []Section {
	if len(sections) == 0 {
		return sections
	}
	merged := make([]Section, 0, len(sections))
	cur := sections[0]
	for _, s := range sections[1:] {
		if utf8.RuneCountInString(s.Content) < minSize && s.Type == cur.Type && s.Level == cur.Level {
			cur.Content += "\n\n" + s.Content
			continue
		}
		merged = append(merged, cur)
		cur = s
	}
	return append(merged, cur)
}

// SplitSections groups sections into chunks of at most MaxUnit tokens,
// counted on the joined text. A header or paragraph closes the running chunk,
// as does overflow. After every closed chunk that is followed by more text, an
// overlap chunk repeats its longest run of trailing sections that fits in
// OverlapUnit, or the last OverlapUnit tokens when no section fits.
func (c *Chunker) SplitSections(sections []Section) ([]Chunk, error) {
	var (
		chunks    []Chunk
		buf       []Section
		bufTokens []int
		total     int
	)

	flush := func(more bool) error {
		if len(buf) == 0 {
			return nil
		}
		content, err := c.sectionChunk(buf, total, false)
		if err != nil {
			return err
		}
		chunks = append(chunks, content)
		if more {
			if ov, ok, err := c.overlapChunk(buf, bufTokens); err != nil {
				return err
			} else if ok {
				chunks = append(chunks, ov)
			}
		}
		buf, bufTokens, total = nil, nil, 0
		return nil
	}

	for _, s := range sections {
		n, err := c.count(s.Content)
		if err != nil {
			return nil, err
		}
		if len(buf) > 0 && s.Type.startsChunk() {
			if err := flush(true); err != nil {
				return nil, err
			}
		}
		if len(buf) > 0 {
			grown, err := c.joinedCount(buf, total, s, n)
			if err != nil {
				return nil, err
			}
			if grown <= c.cfg.MaxUnit {
				buf = append(buf, s)
				bufTokens = append(bufTokens, n)
				total = grown
				continue
			}
			if err := flush(true); err != nil {
				return nil, err
			}
		}
		if n > c.cfg.MaxUnit {
			pieces, err := c.SplitText(s.Content)
			if err != nil {
				return nil, err
			}
			for _, p := range pieces {
				p.Tags = []string{DocumentTag, s.Type.String()}
				chunks = append(chunks, p)
			}
			continue
		}
		buf = append(buf, s)
		bufTokens = append(bufTokens, n)
		total = n
	}
	if err := flush(false); err != nil {
		return nil, err
	}

	overlaps := 0
	for _, ch := range chunks {
		if ch.IsOverlap {
			overlaps++
		}
	}
	c.logger.Debug("structural chunking done",
		zap.Int("sections", len(sections)),
		zap.Int("chunks", len(chunks)),
		zap.Int("overlap_chunks", overlaps))

	if len(chunks) > c.cfg.MaxChunks {
		c.logger.Warn("chunk limit reached, truncating",
			zap.Int("max_chunks", c.cfg.MaxChunks),
			zap.Int("chunks", len(chunks)))
		chunks = chunks[:c.cfg.MaxChunks]
	}
	if chunks == nil {
		chunks = []Chunk{}
	}
	finish(chunks)
	return chunks, nil
}

// joinedCount is the size of buf plus s once joined with the separator.
// Runes add up exactly; tokens are counted on the joined text.
func (c *Chunker) joinedCount(buf []Section, total int, s Section, n int) (int, error) {
	if c.cfg.Unit == UnitChar {
		return total + utf8.RuneCountInString(paragraphSeparator) + n, nil
	}
	return c.count(joinSections(append(buf[:len(buf):len(buf)], s)))
}

// suffixCount is the joined size of secs, whose own sizes are tokens.
func (c *Chunker) suffixCount(secs []Section, tokens []int) (int, error) {
	if len(secs) == 1 {
		return tokens[0], nil
	}
	if c.cfg.Unit == UnitChar {
		n := (len(secs) - 1) * utf8.RuneCountInString(paragraphSeparator)
		for _, t := range tokens {
			n += t
		}
		return n, nil
	}
	return c.count(joinSections(secs))
}

func joinSections(secs []Section) string {
	parts := make([]string, len(secs))
	for i, s := range secs {
		parts[i] = s.Content
	}
	return strings.Join(parts, paragraphSeparator)
}

func (c *Chunker) sectionChunk(secs []Section, tokens int, overlap bool) (Chunk, error) {
	tags := []string{DocumentTag}
	seen := make(map[SectionType]bool)
	for _, s := range secs {
		if !seen[s.Type] {
			seen[s.Type] = true
			tags = append(tags, s.Type.String())
		}
	}
	content := joinSections(secs)
	if len(secs) > 1 {
		n, err := c.count(content)
		if err != nil {
			return Chunk{}, err
		}
		tokens = n
	}
	return Chunk{
		Content:    content,
		TokenCount: tokens,
		CharCount:  utf8.RuneCountInString(content),
		IsOverlap:  overlap,
		Tags:       tags,
	}, nil
}

// overlapChunk builds the longest suffix of buf, the whole buffer included,
// that fits in OverlapUnit tokens. When even the last section is too long it
// falls back to the last OverlapUnit tokens of that section.
func (c *Chunker) overlapChunk(buf []Section, tokens []int) (Chunk, bool, error) {
	if c.cfg.OverlapUnit <= 0 || len(buf) == 0 {
		return Chunk{}, false, nil
	}
	from := len(buf)
	for i := len(buf) - 1; i >= 0; i-- {
		size, err := c.suffixCount(buf[i:], tokens[i:])
		if err != nil {
			return Chunk{}, false, err
		}
		if size > c.cfg.OverlapUnit {
			break
		}
		from = i
	}
	if from < len(buf) {
		ch, err := c.sectionChunk(buf[from:], tokens[from], true)
		if err != nil {
			return Chunk{}, false, err
		}
		return ch, true, nil
	}

	last := buf[len(buf)-1]
	tail, n, err := c.tail(last.Content, c.cfg.OverlapUnit)
	if err != nil || tail == "" {
		return Chunk{}, false, err
	}
	return Chunk{
		Content:    tail,
		TokenCount: n,
		CharCount:  utf8.RuneCountInString(tail),
		IsOverlap:  true,
		Tags:       []string{DocumentTag, last.Type.String()},
	}, true, nil
}

// tail returns the trailing text of at most limit units and its size.
func (c *Chunker) tail(text string, limit int) (string, int, error) {
	if c.cfg.Unit == UnitChar {
		runes := []rune(text)
		if len(runes) > limit {
			runes = runes[len(runes)-limit:]
		}
		out := strings.TrimSpace(string(runes))
		return out, utf8.RuneCountInString(out), nil
	}
	ids, err := c.tok.Encode(text)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrTokenization, err)
	}
	// A decoded tail can re-encode to more tokens; shrink until it fits.
	for k := min(limit, len(ids)); k > 0; k-- {
		out, err := c.tok.Decode(ids[len(ids)-k:])
		if err != nil {
			return "", 0, fmt.Errorf("%w: %v", ErrTokenization, err)
		}
		out = strings.TrimSpace(out)
		n, err := c.count(out)
		if err != nil {
			return "", 0, err
		}
		if n <= limit {
			return out, n, nil
		}
	}
	return "", 0, nil
}

func (c *Chunker) count(text string) (int, error) {
	if c.cfg.Unit == UnitChar {
		return utf8.RuneCountInString(text), nil
	}
	ids, err := c.tok.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTokenization, err)
	}
	return len(ids), nil
}
