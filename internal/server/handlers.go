package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/hyperjump/tanya/internal/vector"
	"go.uber.org/zap"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		s.respondDomainError(w, "create session failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": sess.ID()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete session request", zap.String("session", id))
	if err := s.sessions.Delete(id); err != nil {
		s.respondDomainError(w, "delete session failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleBuildKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	limit := int64(s.config.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "upload exceeds limit", "invalid_request")
			return
		}
		s.respondError(w, http.StatusBadRequest, "expected multipart form with field \"files\"", "invalid_request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	docs := make([]models.SourceDocument, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to read upload "+fh.Filename, "invalid_request")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to read upload "+fh.Filename, "invalid_request")
			return
		}
		docs = append(docs, models.SourceDocument{Name: filepath.Base(fh.Filename), Data: data})
	}

	s.logger.Debug("build knowledge base request", zap.String("session", sess.ID()), zap.Int("files", len(docs)))
	report, err := sess.Build(r.Context(), docs)
	if err != nil {
		s.respondDomainError(w, "build knowledge base failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req models.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body", "invalid_request")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return
	}

	s.logger.Debug("question request", zap.String("session", sess.ID()), zap.String("question", req.Question))
	start := time.Now()
	answer, err := sess.Ask(r.Context(), req.Question)
	if err != nil {
		s.respondDomainError(w, "question failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.NewAnswerResponse(answer, time.Since(start).Milliseconds()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":    sess.ID(),
		"turns": sess.History(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if err := sess.Reset(); err != nil {
		s.logger.Warn("reset: failed to close index", zap.String("session", sess.ID()), zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.config
	resp := map[string]interface{}{
		"sessions": s.sessions.Count(),
		"config": map[string]interface{}{
			"embedding_provider": cfg.Embedding.Provider,
			"llm_provider":       cfg.LLM.Provider,
			"chunk_size":         cfg.Chunking.ChunkSize,
			"chunk_overlap":      cfg.Chunking.Overlap(),
			"k":                  cfg.Retrieval.K,
			"retrieval_mode":     cfg.Retrieval.Mode,
			"index_type":         cfg.Retrieval.IndexType,
			"faiss_available":    vector.IsFAISSAvailable(),
			"database_path":      cfg.Storage.DatabasePath,
		},
	}

	if s.archive != nil {
		ctx := r.Context()
		sessions, err := s.archive.CountSessions(ctx)
		if err != nil {
			s.logger.Error("status: count archived sessions failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error(), "archive")
			return
		}
		turns, err := s.archive.CountTurns(ctx)
		if err != nil {
			s.logger.Error("status: count archived turns failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error(), "archive")
			return
		}
		resp["archived_sessions"] = sessions
		resp["archived_turns"] = turns
		if diskBytes, err := storage.ArchiveSizeBytes(cfg.Storage.DatabasePath); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, "lookup session failed", err)
		return nil, false
	}
	return sess, true
}

// statusForKind maps error kinds to HTTP statuses.
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindConfiguration:
		return http.StatusBadRequest
	case models.KindEmptyInput:
		return http.StatusUnprocessableEntity
	case models.KindProvider:
		return http.StatusBadGateway
	case models.KindNotReady:
		return http.StatusConflict
	case models.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondDomainError(w http.ResponseWriter, msg string, err error) {
	kind := models.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	if kind == "" {
		kind = "internal"
	}
	s.respondError(w, status, err.Error(), string(kind))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message, kind string) {
	s.respondJSON(w, status, map[string]string{"error": message, "kind": kind})
}
