package records

import (
	"reflect"
	"testing"

	"github.com/hyperjump/lexrag/internal/chunker"
	"github.com/hyperjump/lexrag/internal/docindex"
	"github.com/hyperjump/lexrag/internal/models"
)

func TestSourceOf(t *testing.T) {
	idx := docindex.New[string]()
	idx.Insert(docindex.Fragment[string]{ContentType: "глава", Caption: "Глава 2", Start: 1, End: 50, Level: 0})
	idx.Insert(docindex.Fragment[string]{ContentType: "статья", Caption: "Статья 36. Стипендии", Start: 10, End: 20, Level: 1, Links: []string{"abc"}})
	h, _ := idx.Insert(docindex.Fragment[string]{ContentType: "пункт", Caption: "$пункт 1", Start: 11, End: 12, Level: 2})

	src := SourceOf(idx, h)
	if src.SectionPath != "Глава 2 → Статья 36. Стипендии → пункт 1" {
		t.Errorf("SectionPath = %q", src.SectionPath)
	}
	if src.Article != "Статья 36. Стипендии" {
		t.Errorf("Article = %q", src.Article)
	}
	if src.ContentType != "пункт" || src.Start != 11 || src.Level != 2 || src.Handle != h {
		t.Errorf("Unexpected source %+v", src)
	}

	if root := SourceOf(idx, 0); root.Article != "Глава 2" {
		t.Errorf("root Article = %q", root.Article)
	}
	if got := SourceOf(idx, 7); !reflect.DeepEqual(got, Source{}) {
		t.Errorf("Expected empty source for unknown handle, got %+v", got)
	}
}

func TestEmbeddingText(t *testing.T) {
	if got := EmbeddingText("Закон об образовании", "Статья 36", "текст"); got != "Документ: Закон об образовании\nСтатья: Статья 36\nтекст" {
		t.Errorf("EmbeddingText = %q", got)
	}
	if got := EmbeddingText("", "", "текст"); got != "текст" {
		t.Errorf("EmbeddingText = %q", got)
	}
}

func TestDocumentURL(t *testing.T) {
	tests := []struct {
		format, hash, want string
	}{
		{"", "abc", "http://actual.pravo.gov.ru/list.html#hash=abc"},
		{"https://x/%s", "abc", "https://x/abc"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := DocumentURL(tt.format, tt.hash); got != tt.want {
			t.Errorf("DocumentURL(%q, %q) = %q, want %q", tt.format, tt.hash, got, tt.want)
		}
	}
}

func TestID(t *testing.T) {
	src := Source{Handle: 3, Start: 1, End: 5, Level: 2}
	if ID("h", src, 3) != ID("h", src, 3) {
		t.Error("ID is not deterministic")
	}
	if ID("h", src, 3) == ID("h", src, 4) {
		t.Error("chunk index does not change the ID")
	}
	if ID("h", src, 3) == ID("g", src, 3) {
		t.Error("hash does not change the ID")
	}

	sameStart := src
	sameStart.Handle = 4
	if ID("h", src, 0) == ID("h", sameStart, 0) {
		t.Error("same-level fragments sharing a start got the same ID")
	}
}

func TestBuild(t *testing.T) {
	doc := &models.Document{ID: "doc", Hash: "h", Title: "Закон", Number: "273-ФЗ", DocumentURL: DocumentURL("", "h")}
	src := Source{Handle: 2, SectionPath: "Глава 1 → Статья 1", Article: "Статья 1", ContentType: "статья", Start: 3, End: 9, Level: 1, Links: []string{"x"}}
	chunks := []chunker.Chunk{
		{Content: "первый", TokenCount: 2, CharCount: 6, ChunkIndex: 0, TotalChunks: 2, Span: &chunker.Span{Start: 0, End: 2}},
		{Content: "второй", TokenCount: 2, CharCount: 6, ChunkIndex: 1, TotalChunks: 2, IsOverlap: true, Tags: []string{"legal_document"}},
	}

	recs := Build(doc, src, chunks)
	if len(recs) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recs))
	}

	r := recs[0]
	if r.ID != ID("h", src, 0) {
		t.Errorf("ID = %s", r.ID)
	}
	if r.DocumentID != "doc" || r.Number != "273-ФЗ" || r.SectionPath != "Глава 1 → Статья 1" {
		t.Errorf("Unexpected record fields %+v", r)
	}
	if r.EmbeddingText != "Документ: Закон\nСтатья: Статья 1\nпервый" {
		t.Errorf("EmbeddingText = %q", r.EmbeddingText)
	}
	if r.Span == nil || *r.Span != (models.Span{Start: 0, End: 2}) {
		t.Errorf("Span = %+v", r.Span)
	}
	if r.DocumentURL != "http://actual.pravo.gov.ru/list.html#hash=h" {
		t.Errorf("DocumentURL = %q", r.DocumentURL)
	}

	o := recs[1]
	if !o.IsOverlap || o.Span != nil || o.TotalChunks != 2 {
		t.Errorf("Unexpected overlap record %+v", o)
	}
	if !reflect.DeepEqual(o.Tags, []string{"legal_document"}) {
		t.Errorf("Tags = %v", o.Tags)
	}
	if r.ID == o.ID {
		t.Error("records of one fragment share an ID")
	}
}
