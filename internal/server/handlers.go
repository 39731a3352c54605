package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/index"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/querylog"
	"github.com/hyperjump/kotae/internal/retrieval"
)

type askRequest struct {
	Question string `json:"question"`
}

type askSource struct {
	Path       string  `json:"path"`
	Title      string  `json:"title"`
	Section    string  `json:"section,omitempty"`
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

type askResponse struct {
	Answer    string        `json:"answer,omitempty"`
	Status    models.Status `json:"status"`
	TopScore  float64       `json:"top_score"`
	Sources   []askSource   `json:"sources"`
	LatencyMS int64         `json:"latency_ms"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	started := time.Now()
	s.logger.Debug("ask request", zap.String("question", req.Question))

	res, err := s.retriever.Retrieve(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, retrieval.ErrIndexUnavailable) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := askResponse{
		Status:  res.Status,
		Sources: make([]askSource, 0, len(res.Chunks)),
	}
	for _, c := range res.Chunks {
		resp.Sources = append(resp.Sources, askSource{
			Path:       c.Record.Path,
			Title:      c.Record.Title,
			Section:    c.Record.Section,
			Score:      c.Score,
			Similarity: c.Similarity,
		})
	}
	if len(res.Chunks) > 0 {
		resp.TopScore = res.Chunks[0].Score
	}

	if s.generator != nil {
		text, err := s.generator.Generate(r.Context(), req.Question, res)
		if err != nil {
			// Answer generation is a collaborator; its failure degrades
			// the reply to a refusal rather than failing the request.
			s.logger.Error("answer generation failed", zap.Error(err))
			text = answer.Refusal(s.cfg.Answer.Escalation)
		}
		resp.Answer = text
	}

	resp.LatencyMS = time.Since(started).Milliseconds()
	s.recordQuery(r, req.Question, resp)
	s.respondJSON(w, http.StatusOK, resp)
}

// recordQuery journals the served query. Failures are logged, never surfaced.
func (s *Server) recordQuery(r *http.Request, question string, resp askResponse) {
	if s.qlog == nil {
		return
	}
	err := s.qlog.Record(r.Context(), querylog.Entry{
		Query:     question,
		Status:    resp.Status,
		TopScore:  resp.TopScore,
		LatencyMS: resp.LatencyMS,
	})
	if err != nil {
		s.logger.Warn("query log write failed", zap.Error(err))
	}
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if !s.rebuilding.CompareAndSwap(false, true) {
		s.respondError(w, http.StatusConflict, "rebuild already in progress")
		return
	}
	defer s.rebuilding.Store(false)

	s.logger.Info("reindex requested")
	stats, err := s.builder.Build(r.Context())
	if err != nil {
		if errors.Is(err, index.ErrEmptyCorpus) {
			s.respondError(w, http.StatusUnprocessableEntity, "corpus is empty: nothing to index")
			return
		}
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.retriever.Reload(); err != nil {
		s.logger.Error("snapshot reload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "rebuilt",
		"files":  stats.Files,
		"chunks": stats.Chunks,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"index_loaded": false,
	}
	if rows, loadedAt, ok := s.retriever.Rows(); ok {
		resp["index_loaded"] = true
		resp["chunks"] = rows
		resp["loaded_at"] = loadedAt.UTC().Format(time.RFC3339)
	}
	if bytes, err := diskUsageBytes(s.cfg.Storage.IndexDir); err == nil {
		resp["index_disk_bytes"] = bytes
	}
	if s.qlog != nil {
		if n, err := s.qlog.Count(r.Context()); err == nil {
			resp["queries_served"] = n
		}
	}
	resp["config"] = map[string]interface{}{
		"corpus_root":         s.cfg.Corpus.RootDir,
		"embedding_model":     s.cfg.Embedding.Model,
		"dimensions":          s.cfg.Embedding.Dimensions,
		"top_k":               s.cfg.Retrieval.TopK,
		"relevance_threshold": s.cfg.Retrieval.RelevanceThreshold,
		"max_context_chars":   s.cfg.Retrieval.MaxContextChars,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func diskUsageBytes(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
