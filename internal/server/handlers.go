package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/docsage/internal/apperr"
	"github.com/hyperjump/docsage/internal/retrieval"
	"github.com/hyperjump/docsage/internal/storage"
)

// maxUploadBytes caps multipart uploads at 50 MiB.
const maxUploadBytes = 50 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		s.respondError(w, http.StatusBadRequest, "no selected file")
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int("bytes", len(content)))
	report, err := s.ingestor.IngestBytes(r.Context(), header.Filename, content)
	if err != nil {
		s.logger.Error("upload ingest failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ids, err := s.index.DocIDs(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": ids, "count": len(ids)})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("doc_id", id))
	n, err := s.ingestor.Remove(r.Context(), id)
	if err != nil {
		s.logger.Error("deletion failed", zap.String("doc_id", id), zap.Error(err))
		s.respondAppError(w, err)
		return
	}
	if n == 0 {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("document %q not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"doc_id":         id,
		"chunks_removed": n,
		"status":         "deleted",
	})
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))
	session, err := s.retriever.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

type themesRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	var req themesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("themes request", zap.String("query", req.Query))
	report, err := s.aggregator.Aggregate(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("theme aggregation failed", zap.Error(err))
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := retrieval.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = retrieval.ExportText
	}
	data, filename, err := s.retriever.Export(format)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	contentType := "text/plain; charset=utf-8"
	if format == retrieval.ExportCSV {
		contentType = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docs, chunks, err := s.index.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: counts failed", zap.Error(err))
		s.respondAppError(w, err)
		return
	}
	resp := map[string]interface{}{
		"documents":         docs,
		"chunks":            chunks,
		"vector_index_size": s.index.Size(),
	}
	resp["config"] = map[string]interface{}{
		"embedding_model":      s.config.Embedding.Model,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"synthesis_model":      s.config.Synthesis.Model,
		"chunk_size":           s.config.Chunking.ChunkSize,
		"chunk_overlap":        s.config.Chunking.Overlap,
		"page_length":          s.config.Chunking.PageLength,
		"default_top_k":        s.config.Retrieval.DefaultTopK,
		"max_top_k":            s.config.Retrieval.MaxTopK,
		"database_path":        s.config.Storage.DatabasePath,
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	if s.watch != nil {
		resp["watched_directories"] = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// respondAppError maps the error taxonomy onto HTTP status codes.
func (s *Server) respondAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindEmptyQuery, apperr.KindInvalidArgument, apperr.KindEmptyIndex, apperr.KindNoActiveSession:
		status = http.StatusBadRequest
	case apperr.KindUnsupportedFormat:
		status = http.StatusUnsupportedMediaType
	case apperr.KindExtraction:
		status = http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindTimeout:
		status = http.StatusGatewayTimeout
	case apperr.KindEmbeddingProvider, apperr.KindSynthesis:
		status = http.StatusBadGateway
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message, "status": "error"})
}
