package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/lexrag/internal/config"
	"github.com/hyperjump/lexrag/internal/embedding"
	"github.com/hyperjump/lexrag/internal/keyword"
	"github.com/hyperjump/lexrag/internal/models"
	"github.com/hyperjump/lexrag/internal/storage"
	"github.com/hyperjump/lexrag/internal/vector"
)

type fixture struct {
	engine *Engine
	emb    embedding.Embedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	emb := embedding.NewMockEmbedder(8)
	vecIndex, err := vector.NewMemoryIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewMemBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })

	docs := map[string][]*models.ChunkRecord{
		"d1": {
			{ID: "d1-0", Content: "налоговая ставка устанавливается в размере 13 процентов"},
			{ID: "d1-1", Content: "налоговая ставка устанавливается", IsOverlap: true},
			{ID: "d1-2", Content: "порядок уплаты сбора"},
		},
		"d2": {
			{ID: "d2-0", Content: "налоговая база определяется отдельно"},
		},
	}
	for docID, records := range docs {
		for i, r := range records {
			r.DocumentID = docID
			r.ChunkIndex = i
			r.TotalChunks = len(records)
			r.SectionPath = "Статья 1"
		}
		if err := store.SaveDocument(ctx, &models.Document{ID: docID, Hash: docID, Title: "Налоговый кодекс"}, records); err != nil {
			t.Fatal(err)
		}
		if err := kwIndex.IndexRecords(ctx, records); err != nil {
			t.Fatal(err)
		}
		for _, r := range records {
			vec, _ := emb.Embed(ctx, r.Content)
			if err := vecIndex.Add(ctx, []vector.Entry{{ID: r.ID, DocumentID: docID, Vector: vec}}); err != nil {
				t.Fatal(err)
			}
		}
	}

	cfg := &config.SearchConfig{
		DefaultLimit: 10, MaxLimit: 50, TopKCandidates: 20,
		KeywordWeight: 0.4, SemanticWeight: 0.6,
	}
	return &fixture{engine: NewEngine(store, emb, vecIndex, kwIndex, cfg, nil), emb: emb}
}

func TestEngine_Search(t *testing.T) {
	f := newFixture(t)
	resp, err := f.engine.Search(context.Background(), &models.SearchQuery{Query: "налоговая ставка", KeywordEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	top := resp.Results[0]
	if top.Record.ID != "d1-0" || top.Rank != 1 {
		t.Errorf("top = %+v (record %s)", top, top.Record.ID)
	}
	if top.Record.Title != "Налоговый кодекс" {
		t.Errorf("record not hydrated: %+v", top.Record)
	}
	for _, r := range resp.Results {
		if r.Record.IsOverlap {
			t.Errorf("overlap record %s returned without include_overlap", r.Record.ID)
		}
	}
}

func TestEngine_IncludeOverlapAndFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.engine.Search(ctx, &models.SearchQuery{
		Query: "налоговая", KeywordEnabled: true, IncludeOverlap: true, DocumentID: "d1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected d1-0 and d1-1, got %d", resp.Total)
	}
	for _, r := range resp.Results {
		if r.Record.DocumentID != "d1" {
			t.Errorf("filter leaked %s", r.Record.ID)
		}
	}
}

func TestEngine_SemanticOnly(t *testing.T) {
	f := newFixture(t)
	resp, err := f.engine.Search(context.Background(), &models.SearchQuery{
		Query: "порядок уплаты сбора", SemanticEnabled: true, Limit: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(resp.Results))
	}
	// Identical text embeds identically with the mock embedder.
	if resp.Results[0].Record.ID != "d1-2" || resp.Results[0].KeywordScore != 0 {
		t.Errorf("top = %+v", resp.Results[0])
	}
	if resp.Total < 1 {
		t.Errorf("Total = %d", resp.Total)
	}
}

func TestEngine_Hybrid(t *testing.T) {
	f := newFixture(t)
	resp, err := f.engine.Search(context.Background(), &models.SearchQuery{Query: "порядок уплаты сбора"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Record.ID != "d1-2" {
		t.Fatalf("hybrid top result wrong: %+v", resp.Results)
	}
	if resp.Results[0].KeywordScore != 1 || resp.Results[0].SemanticScore < 0.999 {
		t.Errorf("component scores = %+v", resp.Results[0])
	}
}

func TestEngine_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Search(context.Background(), &models.SearchQuery{}); err == nil {
		t.Error("expected error for empty query")
	}
}
