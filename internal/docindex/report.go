package docindex

import "fmt"

// Issue describes one structural problem found by Validate.
type Issue struct {
	Handle  Handle
	Other   Handle
	Message string
}

// Report is the outcome of Validate. Errors are broken parent edges, warnings
// are overlapping fragments on one level.
type Report struct {
	Errors   []Issue
	Warnings []Issue
}

// OK reports whether no errors were found.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

// Validate checks every parent edge and reports same-level overlaps. It never
// modifies the index.
func (idx *Index[T]) Validate() Report {
	var r Report

	for i := range idx.nodes {
		child := Handle(i)
		parent, ok := idx.parents[child]
		if !ok {
			continue
		}
		c, p := idx.nodes[child], idx.nodes[parent]
		if !p.Contains(c.Start, c.End) {
			r.Errors = append(r.Errors, Issue{
				Handle: child,
				Other:  parent,
				Message: fmt.Sprintf("fragment [%d-%d] is not contained in parent [%d-%d]",
					c.Start, c.End, p.Start, p.End),
			})
		}
		if c.Level != p.Level+1 {
			r.Errors = append(r.Errors, Issue{
				Handle:  child,
				Other:   parent,
				Message: fmt.Sprintf("fragment level %d under parent level %d", c.Level, p.Level),
			})
		}
	}

	for level := 0; level < MaxLevel; level++ {
		var active []Handle
		for _, h := range idx.levels[level] {
			f := idx.nodes[h]
			kept := active[:0]
			for _, a := range active {
				if idx.nodes[a].End >= f.Start {
					kept = append(kept, a)
				}
			}
			active = kept
			for _, a := range active {
				o := idx.nodes[a]
				if f.Overlaps(o) {
					r.Warnings = append(r.Warnings, Issue{
						Handle: h,
						Other:  a,
						Message: fmt.Sprintf("level %d fragments [%d-%d] and [%d-%d] overlap",
							level, o.Start, o.End, f.Start, f.End),
					})
				}
			}
			active = append(active, h)
		}
	}
	return r
}

// Stats summarises the shape of the tree.
type Stats struct {
	TotalNodes        int           `json:"total_nodes"`
	NodesPerLevel     [MaxLevel]int `json:"nodes_per_level"`
	NodesWithChildren int           `json:"nodes_with_children"`
	TotalChildren     int           `json:"total_children"`
	MaxChildren       int           `json:"max_children"`
}

// Stats computes tree statistics.
func (idx *Index[T]) Stats() Stats {
	s := Stats{TotalNodes: len(idx.nodes)}
	for l := 0; l < MaxLevel; l++ {
		s.NodesPerLevel[l] = len(idx.levels[l])
	}
	for _, kids := range idx.children {
		if len(kids) == 0 {
			continue
		}
		s.NodesWithChildren++
		s.TotalChildren += len(kids)
		if len(kids) > s.MaxChildren {
			s.MaxChildren = len(kids)
		}
	}
	return s
}
