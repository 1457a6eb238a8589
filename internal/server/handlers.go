package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/lexrag/internal/chunker"
	"github.com/hyperjump/lexrag/internal/contents"
	"github.com/hyperjump/lexrag/internal/indexer"
	"github.com/hyperjump/lexrag/internal/models"
	"github.com/hyperjump/lexrag/internal/storage"
	"go.uber.org/zap"
)

const defaultPageSize = 50

type chunkRequest struct {
	Text string `json:"text"`
}

type chunkResponse struct {
	Chunks []chunker.Chunk `json:"chunks"`
	Total  int             `json:"total"`
}

type documentList struct {
	Documents []*models.Document `json:"documents"`
	Total     int64              `json:"total"`
	Offset    int                `json:"offset"`
	Limit     int                `json:"limit"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if !s.decode(w, r, &query) {
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if !s.decode(w, r, &req) {
		return
	}
	chunks, err := s.indexer.ChunkText(req.Text)
	if err != nil {
		s.fail(w, "chunking failed", err)
		return
	}
	if chunks == nil {
		chunks = []chunker.Chunk{}
	}
	s.respondJSON(w, http.StatusOK, chunkResponse{Chunks: chunks, Total: len(chunks)})
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	b, err := indexer.DecodeBundle(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest document request", zap.String("hash", b.Document.Hash))
	res, err := s.indexer.IngestDocument(r.Context(), b)
	if err != nil {
		s.fail(w, "ingest failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, "list documents failed", err)
		return
	}
	total, err := s.storage.CountDocuments(r.Context())
	if err != nil {
		s.fail(w, "count documents failed", err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, documentList{Documents: docs, Total: total, Offset: offset, Limit: limit})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.storage.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get document failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.fail(w, "get document failed", err)
		return
	}
	records, err := s.storage.GetChunksByDocumentID(r.Context(), id)
	if err != nil {
		s.fail(w, "get chunks failed", err)
		return
	}
	if records == nil {
		records = []*models.ChunkRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"document_id": id, "chunks": records, "total": len(records)})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.indexer.DeleteDocument(r.Context(), id); err != nil {
		s.fail(w, "deletion failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.fail(w, "health: count documents failed", err)
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.fail(w, "health: count chunks failed", err)
		return
	}
	resp := map[string]any{
		"status":    "ok",
		"documents": docCount,
		"chunks":    chunkCount,
	}
	if s.vectorIndex != nil {
		resp["vector_index_size"] = s.vectorIndex.Size()
	}
	if s.watch != nil {
		resp["watch_directories"] = s.watch.Directories()
	}
	if s.config != nil {
		st := s.config.Storage
		if n, err := storage.DiskUsageBytes(st.DatabasePath, st.BleveIndexPath, st.VectorIndexPath); err == nil {
			resp["disk_usage_bytes"] = n
		}
		resp["config"] = map[string]any{
			"tokenizer":            s.config.Tokenizer.Kind,
			"chunk_unit":           s.config.Chunking.Unit,
			"chunk_max_unit":       s.config.Chunking.MaxUnit,
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// errorStatus maps pipeline errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, indexer.ErrEmptyDocument),
		errors.Is(err, contents.ErrBadPosition),
		errors.Is(err, models.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, chunker.ErrTokenization):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
