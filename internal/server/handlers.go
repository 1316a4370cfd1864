package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/seekrai/internal/pipeline"
)

var validate = validator.New()

// CreateAnalysisResponse is returned when an analysis job is accepted.
type CreateAnalysisResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// handleCreateAnalysis accepts a resume and starts a background analysis run.
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	// The run outlives this request, so it must not inherit the request
	// context.
	id := s.runner.Submit(context.Background(), req)

	s.jsonResponse(w, http.StatusAccepted, CreateAnalysisResponse{
		JobID:  id,
		Status: "accepted",
	})
}

// handleGetAnalysis returns the progress snapshot and, once complete, the
// result for a job.
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.errorResponse(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	status, ok := s.runner.Status(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "Job not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, status)
}

// handleCacheInfo returns cache statistics and the entry listing.
func (s *Server) handleCacheInfo(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Cache error: "+err.Error())
		return
	}
	entries, err := s.store.Entries(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Cache error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"stats":   stats,
		"entries": entries,
	})
}

// handleCacheClear wipes the cache.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.ClearAll(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Cache error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

// handleCachePurge removes only expired entries.
func (s *Server) handleCachePurge(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.PurgeExpired(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Cache error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]int{"entries_removed": removed})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// validationMessage flattens validator errors into a readable message.
func validationMessage(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return "Invalid request: " + err.Error()
	}
	parts := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		parts = append(parts, fe.Field()+" failed "+fe.Tag()+" validation")
	}
	return "Invalid request: " + strings.Join(parts, "; ")
}
