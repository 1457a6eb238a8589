package search

import (
	"testing"

	"github.com/hyperjump/lexrag/internal/keyword"
	"github.com/hyperjump/lexrag/internal/vector"
)

func TestNormalizeKeywordScores(t *testing.T) {
	results := []*keyword.Result{
		{ID: "a", Score: 2},
		{ID: "b", Score: 4},
		{ID: "c", Score: 1},
	}
	m := NormalizeKeywordScores(results)
	if m["b"] != 1.0 {
		t.Errorf("max score should be 1.0, got %f", m["b"])
	}
	if m["a"] != 0.5 {
		t.Errorf("a should be 0.5, got %f", m["a"])
	}
	if len(m) != 3 {
		t.Errorf("expected 3 entries, got %d", len(m))
	}
	if len(NormalizeKeywordScores(nil)) != 0 {
		t.Error("nil results should give an empty map")
	}
}

func TestSemanticScores(t *testing.T) {
	m := SemanticScores([]*vector.Result{
		{ID: "c1", Score: 0.9},
		{ID: "c2", Score: -0.2},
	})
	if m["c1"] != 0.9 || m["c2"] != -0.2 {
		t.Errorf("unexpected map %v", m)
	}
}

func TestFuse(t *testing.T) {
	kw := map[string]float64{"r1": 1.0, "r2": 0.5}
	sem := map[string]float64{"r2": 1.0, "r3": 0.2}
	results := Fuse(kw, sem, 0.4, 0.6)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != "r2" {
		t.Errorf("r2 matches both and should lead, got %s", results[0].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Error("results should be sorted by score descending")
		}
	}
	if results[0].KeywordScore != 0.5 || results[0].SemanticScore != 1.0 {
		t.Errorf("component scores lost: %+v", results[0])
	}
}

func TestFuse_TiesByID(t *testing.T) {
	results := Fuse(map[string]float64{"b": 1, "a": 1}, nil, 1, 0)
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("got %s, %s", results[0].ID, results[1].ID)
	}
}
