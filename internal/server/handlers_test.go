package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/lexrag/internal/chunker"
	"github.com/hyperjump/lexrag/internal/config"
	"github.com/hyperjump/lexrag/internal/contents"
	"github.com/hyperjump/lexrag/internal/embedding"
	"github.com/hyperjump/lexrag/internal/indexer"
	"github.com/hyperjump/lexrag/internal/keyword"
	"github.com/hyperjump/lexrag/internal/models"
	"github.com/hyperjump/lexrag/internal/search"
	"github.com/hyperjump/lexrag/internal/storage"
	"github.com/hyperjump/lexrag/internal/vector"
)

const bundleJSON = `{
  "document": {"hash": "abc"},
  "contents": [
    {"id": "1", "np": "p2", "npe": "p3", "caption": "Статья 1. Предмет", "unit": "статья", "lvl": 0}
  ],
  "html": "<html><body><p id=\"p1\" class=\"T\">О тестовом законе</p><p id=\"p2\" class=\"H\">Статья 1. Предмет</p><p id=\"p3\">Нарушение требований влечет ответственность.</p></body></html>"
}`

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	emb := embedding.NewMockEmbedder(8)
	vecIdx, err := vector.NewMemoryIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	kwIdx, err := keyword.NewMemBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIdx.Close() })

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "db.sqlite")
	ch := chunker.New(chunker.Config{
		MaxUnit:           200,
		OverlapUnit:       20,
		PreserveStructure: true,
		Unit:              chunker.UnitChar,
	}.Normalize(), nil)

	idx := indexer.NewIndexer(store, emb, vecIdx, kwIdx, ch, cfg)
	engine := search.NewEngine(store, emb, vecIdx, kwIdx, &cfg.Search, nil)
	return NewServer(engine, idx, store, vecIdx, cfg, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func TestDocumentLifecycle(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/v1/documents", bundleJSON)
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status %d: %s", w.Code, w.Body.String())
	}
	var res indexer.Result
	decode(t, w, &res)
	if res.DocumentID != "abc" || res.Records == 0 {
		t.Errorf("result = %+v", res)
	}

	w = do(t, h, http.MethodGet, "/api/v1/documents/abc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status %d", w.Code)
	}
	var doc models.Document
	decode(t, w, &doc)
	if doc.ID != "abc" {
		t.Errorf("document = %+v", doc)
	}

	w = do(t, h, http.MethodGet, "/api/v1/documents", "")
	var list documentList
	decode(t, w, &list)
	if list.Total != 1 || len(list.Documents) != 1 {
		t.Errorf("list = %+v", list)
	}

	w = do(t, h, http.MethodGet, "/api/v1/documents/abc/chunks", "")
	if w.Code != http.StatusOK {
		t.Fatalf("chunks status %d", w.Code)
	}
	var chunks struct {
		Chunks []models.ChunkRecord `json:"chunks"`
		Total  int                  `json:"total"`
	}
	decode(t, w, &chunks)
	if chunks.Total != res.Records || len(chunks.Chunks) != res.Records {
		t.Errorf("chunks total %d, want %d", chunks.Total, res.Records)
	}

	w = do(t, h, http.MethodPost, "/api/v1/search", `{"query": "ответственность", "keyword_enabled": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("search status %d: %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	if len(resp.Results) == 0 || resp.Results[0].Record.DocumentID != "abc" {
		t.Errorf("search results = %+v", resp.Results)
	}

	if w = do(t, h, http.MethodDelete, "/api/v1/documents/abc", ""); w.Code != http.StatusOK {
		t.Fatalf("delete status %d", w.Code)
	}
	if w = do(t, h, http.MethodGet, "/api/v1/documents/abc", ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d, want 404", w.Code)
	}
	if w = do(t, h, http.MethodDelete, "/api/v1/documents/abc", ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d, want 404", w.Code)
	}
}

func TestBadRequests(t *testing.T) {
	h := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed bundle", http.MethodPost, "/api/v1/documents", "{", http.StatusBadRequest},
		{"empty bundle", http.MethodPost, "/api/v1/documents", `{"document": {"hash": "x"}}`, http.StatusBadRequest},
		{"empty query", http.MethodPost, "/api/v1/search", `{"query": ""}`, http.StatusBadRequest},
		{"malformed search", http.MethodPost, "/api/v1/search", "nope", http.StatusBadRequest},
		{"bad offset", http.MethodGet, "/api/v1/documents?offset=-1", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/documents?limit=x", "", http.StatusBadRequest},
		{"unknown chunks", http.MethodGet, "/api/v1/documents/missing/chunks", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			var body map[string]string
			decode(t, w, &body)
			if body["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestHandleChunk(t *testing.T) {
	h := newTestServer(t)
	text := strings.Repeat("Первый абзац текста. ", 5) + "\n\n" + strings.Repeat("Второй абзац. ", 5)
	body, _ := json.Marshal(chunkRequest{Text: text})
	w := do(t, h, http.MethodPost, "/api/v1/chunk", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp chunkResponse
	decode(t, w, &resp)
	if resp.Total == 0 || resp.Total != len(resp.Chunks) {
		t.Errorf("response = %+v", resp)
	}
	for i, c := range resp.Chunks {
		if c.ChunkIndex != i || c.TotalChunks != resp.Total {
			t.Errorf("chunk %d numbering = %d/%d", i, c.ChunkIndex, c.TotalChunks)
		}
	}

	w = do(t, h, http.MethodPost, "/api/v1/chunk", `{"text": ""}`)
	decode(t, w, &resp)
	if w.Code != http.StatusOK || resp.Total != 0 || resp.Chunks == nil {
		t.Errorf("empty text: status %d, response %+v", w.Code, resp)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status %d", w.Code)
	}
	var health map[string]any
	decode(t, w, &health)
	if health["status"] != "ok" || health["documents"] != float64(0) {
		t.Errorf("health = %v", health)
	}
	if _, ok := health["vector_index_size"]; !ok {
		t.Error("health should report the vector index size")
	}

	w = do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "lexrag_") {
		t.Error("metrics output should contain lexrag collectors")
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("document x: %w", storage.ErrNotFound), http.StatusNotFound},
		{indexer.ErrEmptyDocument, http.StatusBadRequest},
		{fmt.Errorf("entry 1: %w", contents.ErrBadPosition), http.StatusBadRequest},
		{models.ErrEmptyQuery, http.StatusBadRequest},
		{fmt.Errorf("chunk: %w", chunker.ErrTokenization), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
