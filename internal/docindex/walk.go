package docindex

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Roots returns the fragments without a recorded parent, ordered by Start
// then Level.
func (idx *Index[T]) Roots() []Handle {
	var roots []Handle
	for i := range idx.nodes {
		h := Handle(i)
		if _, ok := idx.parents[h]; !ok {
			roots = append(roots, h)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool {
		a, b := idx.nodes[roots[i]], idx.nodes[roots[j]]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Level < b.Level
	})
	return roots
}

// Walk visits the tree depth-first, children in start order. Returning false
// from fn skips the subtree of the visited fragment.
func (idx *Index[T]) Walk(fn func(h Handle, depth int) bool) {
	for _, r := range idx.Roots() {
		idx.walk(r, 0, fn)
	}
}

func (idx *Index[T]) walk(h Handle, depth int, fn func(Handle, int) bool) {
	if !fn(h, depth) {
		return
	}
	kids := idx.ChildrenOf(h)
	sort.SliceStable(kids, func(i, j int) bool {
		return idx.nodes[kids[i]].Start < idx.nodes[kids[j]].Start
	})
	for _, k := range kids {
		idx.walk(k, depth+1, fn)
	}
}

// Print writes an indented outline of the tree.
func (idx *Index[T]) Print(w io.Writer) error {
	var err error
	idx.Walk(func(h Handle, depth int) bool {
		if err != nil {
			return false
		}
		f := idx.nodes[h]
		caption := CleanCaption(f.Caption)
		if caption == "" {
			caption = f.ContentType
		}
		_, err = fmt.Fprintf(w, "%s[L%d] %s (%d-%d)\n",
			strings.Repeat("  ", depth), f.Level, caption, f.Start, f.End)
		return err == nil
	})
	return err
}
