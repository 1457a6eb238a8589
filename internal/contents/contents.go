// Package contents turns an act's table of contents and its paragraphs into
// a document index.
package contents

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/lexrag/internal/docindex"
	"github.com/hyperjump/lexrag/internal/legalhtml"
	"go.uber.org/zap"
)

// ErrBadPosition is returned for a position that is not "p<digits>".
var ErrBadPosition = errors.New("invalid paragraph position")

// PreambleType labels paragraphs not covered by any top-level entry.
const PreambleType = "preamble"

// Entry is one row of the table of contents as served by the portal.
type Entry struct {
	ID      string `json:"id"`
	Start   string `json:"np"`
	End     string `json:"npe"`
	Caption string `json:"caption"`
	Unit    string `json:"unit"`
	Level   int    `json:"lvl"`
}

// Item is an Entry with numeric bounds.
type Item struct {
	Start   int
	End     int
	Caption string
	Unit    string
	Level   int
}

// Item parses the "pN" bounds of e.
func (e Entry) Item() (Item, error) {
	start, err := position(e.Start)
	if err != nil {
		return Item{}, fmt.Errorf("entry %s np=%q: %w", e.ID, e.Start, err)
	}
	end, err := position(e.End)
	if err != nil {
		return Item{}, fmt.Errorf("entry %s npe=%q: %w", e.ID, e.End, err)
	}
	if end < start {
		return Item{}, fmt.Errorf("entry %s: end p%d before start p%d: %w", e.ID, end, start, ErrBadPosition)
	}
	return Item{Start: start, End: end, Caption: e.Caption, Unit: e.Unit, Level: e.Level}, nil
}

func position(s string) (int, error) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(s), "p")
	if !ok || digits == "" {
		return 0, ErrBadPosition
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, ErrBadPosition
	}
	return n, nil
}

// Items parses all entries, failing on the first bad one.
func Items(entries []Entry) ([]Item, error) {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		it, err := e.Item()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// Section is the payload stored in the index: the paragraphs of a fragment.
type Section struct {
	Paragraphs []legalhtml.Paragraph
}

// Text joins the paragraph texts.
func (s Section) Text() string {
	return legalhtml.Text(s.Paragraphs)
}

// Build inserts one fragment per item, then covers paragraphs outside every
// level-0 item with preamble fragments. It returns the number of rejected
// fragments alongside the index.
func Build(items []Item, paras []legalhtml.Paragraph, logger *zap.Logger) (*docindex.Index[Section], int) {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := docindex.New[Section](docindex.WithLogger(logger))

	sorted := make([]legalhtml.Paragraph, len(paras))
	copy(sorted, paras)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	// Insert shallow levels first so parents exist before their children.
	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Level != ordered[j].Level {
			return ordered[i].Level < ordered[j].Level
		}
		return ordered[i].Start < ordered[j].Start
	})

	rejected := 0
	var covered [][2]int
	for _, it := range ordered {
		if _, ok := idx.Insert(fragment(it.Unit, it.Caption, it.Start, it.End, it.Level, sorted)); !ok {
			rejected++
			continue
		}
		if it.Level == 0 {
			covered = append(covered, [2]int{it.Start, it.End})
		}
	}

	for _, gap := range gaps(sorted, covered) {
		idx.Insert(fragment(PreambleType, "", gap[0], gap[1], 0, sorted))
	}
	return idx, rejected
}

// gaps returns maximal runs of consecutive paragraphs outside every range.
func gaps(paras []legalhtml.Paragraph, covered [][2]int) [][2]int {
	inside := func(n int) bool {
		for _, r := range covered {
			if r[0] <= n && n <= r[1] {
				return true
			}
		}
		return false
	}
	var out [][2]int
	open := false
	for _, p := range paras {
		if inside(p.Number) {
			open = false
			continue
		}
		if open {
			out[len(out)-1][1] = p.Number
			continue
		}
		out = append(out, [2]int{p.Number, p.Number})
		open = true
	}
	return out
}

func fragment(unit, caption string, start, end, level int, paras []legalhtml.Paragraph) docindex.Fragment[Section] {
	sel := between(paras, start, end)
	var raw strings.Builder
	var links []string
	seen := make(map[string]bool)
	for _, p := range sel {
		raw.WriteString(p.HTML)
		for _, l := range p.Links {
			if !seen[l] {
				seen[l] = true
				links = append(links, l)
			}
		}
	}
	return docindex.Fragment[Section]{
		ContentType: unit,
		RawContent:  raw.String(),
		Content:     Section{Paragraphs: sel},
		Links:       links,
		Start:       start,
		End:         end,
		Level:       level,
		Caption:     caption,
	}
}

// between returns the paragraphs numbered in [start, end]; paras is sorted.
func between(paras []legalhtml.Paragraph, start, end int) []legalhtml.Paragraph {
	lo := sort.Search(len(paras), func(i int) bool { return paras[i].Number >= start })
	hi := sort.Search(len(paras), func(i int) bool { return paras[i].Number > end })
	return paras[lo:hi]
}

// OwnParagraphs returns the paragraphs of h that none of its children cover.
func OwnParagraphs(idx *docindex.Index[Section], h docindex.Handle) []legalhtml.Paragraph {
	f, ok := idx.Get(h)
	if !ok {
		return nil
	}
	kids := idx.ChildrenOf(h)
	if len(kids) == 0 {
		return f.Content.Paragraphs
	}
	var own []legalhtml.Paragraph
	for _, p := range f.Content.Paragraphs {
		covered := false
		for _, k := range kids {
			c, _ := idx.Get(k)
			if c.Start <= p.Number && p.Number <= c.End {
				covered = true
				break
			}
		}
		if !covered {
			own = append(own, p)
		}
	}
	return own
}
