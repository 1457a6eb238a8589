// Package docindex keeps the fragments of one document in a containment tree
// ordered by paragraph position and nesting level.
package docindex

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// MaxLevel bounds the nesting depth; valid levels are 0..MaxLevel-1.
const MaxLevel = 10

// BreadcrumbSeparator joins captions in a breadcrumb.
const BreadcrumbSeparator = " → "

// Handle identifies a fragment by its insertion order.
type Handle int

// Fragment is one structural unit of a document. Start and End are paragraph
// positions, inclusive. A caption starting with "$" names an unnamed unit.
type Fragment[T any] struct {
	ContentType string
	RawContent  string
	Content     T
	Links       []string
	Start       int
	End         int
	Level       int
	Caption     string
}

// Contains reports whether f covers the range [start, end].
func (f Fragment[T]) Contains(start, end int) bool {
	return f.Start <= start && f.End >= end
}

// Overlaps reports whether f and o share at least one position.
func (f Fragment[T]) Overlaps(o Fragment[T]) bool {
	return !(f.End < o.Start || o.End < f.Start)
}

// Index is built by a single writer and is read-only afterwards.
type Index[T any] struct {
	nodes    []Fragment[T]
	levels   [MaxLevel][]Handle
	children map[Handle][]Handle
	parents  map[Handle]Handle
	logger   *zap.Logger
}

// Option configures an Index.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for rejections and overlap warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates an empty index.
func New[T any](opts ...Option) *Index[T] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &Index[T]{
		children: make(map[Handle][]Handle),
		parents:  make(map[Handle]Handle),
		logger:   o.logger,
	}
}

// Insert adds f and links it to its parent on the level above. Fragments with
// a level outside [0, MaxLevel) are rejected. Overlap with a same-level
// neighbour is logged but the fragment is still stored.
func (idx *Index[T]) Insert(f Fragment[T]) (Handle, bool) {
	if f.Level < 0 || f.Level >= MaxLevel {
		idx.logger.Debug("fragment rejected",
			zap.Int("level", f.Level),
			zap.Int("start", f.Start),
			zap.Int("end", f.End),
			zap.String("caption", f.Caption))
		return -1, false
	}

	h := Handle(len(idx.nodes))
	idx.nodes = append(idx.nodes, f)

	list := idx.levels[f.Level]
	pos := sort.Search(len(list), func(i int) bool {
		return idx.nodes[list[i]].Start > f.Start
	})
	list = append(list, 0)
	copy(list[pos+1:], list[pos:])
	list[pos] = h
	idx.levels[f.Level] = list

	idx.warnNeighbours(h, list, pos)

	if f.Level > 0 {
		if p, ok := idx.FindParent(f.Start, f.End, f.Level); ok {
			idx.children[p] = append(idx.children[p], h)
			idx.parents[h] = p
		} else {
			idx.logger.Debug("orphan fragment",
				zap.Int("level", f.Level),
				zap.Int("start", f.Start),
				zap.Int("end", f.End))
		}
	}
	return h, true
}

func (idx *Index[T]) warnNeighbours(h Handle, list []Handle, pos int) {
	f := idx.nodes[h]
	for _, i := range []int{pos - 1, pos + 1} {
		if i < 0 || i >= len(list) {
			continue
		}
		n := idx.nodes[list[i]]
		if f.Overlaps(n) {
			idx.logger.Warn("overlapping fragments on the same level",
				zap.Int("level", f.Level),
				zap.String("caption", f.Caption),
				zap.Int("start", f.Start),
				zap.Int("end", f.End),
				zap.String("other_caption", n.Caption),
				zap.Int("other_start", n.Start),
				zap.Int("other_end", n.End))
		}
	}
}

// FindParent returns the first fragment on level-1, in start order, that
// contains [start, end].
func (idx *Index[T]) FindParent(start, end, level int) (Handle, bool) {
	if level <= 0 || level > MaxLevel {
		return -1, false
	}
	for _, h := range idx.levels[level-1] {
		c := idx.nodes[h]
		if c.Start > start {
			break
		}
		if c.Contains(start, end) {
			return h, true
		}
	}
	return -1, false
}

// AncestorHandles returns the handles of the ancestors of [start, end] at
// level, root first.
func (idx *Index[T]) AncestorHandles(start, end, level int) []Handle {
	var chain []Handle
	for level > 0 {
		p, ok := idx.FindParent(start, end, level)
		if !ok {
			break
		}
		chain = append(chain, p)
		f := idx.nodes[p]
		start, end, level = f.Start, f.End, f.Level
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// FindAncestorChain returns the ancestor fragments of [start, end] at level,
// root first. A level-0 query yields an empty chain.
func (idx *Index[T]) FindAncestorChain(start, end, level int) []Fragment[T] {
	handles := idx.AncestorHandles(start, end, level)
	chain := make([]Fragment[T], 0, len(handles))
	for _, h := range handles {
		chain = append(chain, idx.nodes[h])
	}
	return chain
}

// Breadcrumb joins the captions of f's ancestors and f itself.
func (idx *Index[T]) Breadcrumb(f Fragment[T]) string {
	chain := idx.FindAncestorChain(f.Start, f.End, f.Level)
	parts := make([]string, 0, len(chain)+1)
	for _, a := range chain {
		if c := CleanCaption(a.Caption); c != "" {
			parts = append(parts, c)
		}
	}
	if c := CleanCaption(f.Caption); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, BreadcrumbSeparator)
}

// BreadcrumbOf is Breadcrumb for a stored fragment.
func (idx *Index[T]) BreadcrumbOf(h Handle) string {
	f, ok := idx.Get(h)
	if !ok {
		return ""
	}
	return idx.Breadcrumb(f)
}

// CleanCaption strips the "$" marker and surrounding whitespace.
func CleanCaption(caption string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(caption), "$"))
}

// ChildrenOf returns a copy of h's children in insertion order.
func (idx *Index[T]) ChildrenOf(h Handle) []Handle {
	kids := idx.children[h]
	out := make([]Handle, len(kids))
	copy(out, kids)
	return out
}

// ParentOf returns the recorded parent of h.
func (idx *Index[T]) ParentOf(h Handle) (Handle, bool) {
	p, ok := idx.parents[h]
	return p, ok
}

// Get returns the fragment stored under h.
func (idx *Index[T]) Get(h Handle) (Fragment[T], bool) {
	if h < 0 || int(h) >= len(idx.nodes) {
		var zero Fragment[T]
		return zero, false
	}
	return idx.nodes[h], true
}

// Len returns the number of stored fragments.
func (idx *Index[T]) Len() int {
	return len(idx.nodes)
}

// Level returns a copy of the handles on level l, sorted by Start.
func (idx *Index[T]) Level(l int) []Handle {
	if l < 0 || l >= MaxLevel {
		return nil
	}
	out := make([]Handle, len(idx.levels[l]))
	copy(out, idx.levels[l])
	return out
}
