package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhstock/dsa/internal/domain"
	"github.com/zhstock/dsa/internal/queue"
)

type analyzeRequest struct {
	Ticker       string `json:"ticker"`
	ReportType   string `json:"report_type"` // "standard" or "agent"; defaults to standard
	ForceRefresh bool   `json:"force_refresh"`
}

type analyzeResponse struct {
	TaskID string `json:"task_id"`
}

// handleAnalyze implements POST /analysis/analyze (§6): 202 on a newly
// queued task, 409 (with the existing task id) when the ticker is
// already in flight or the pool otherwise rejects the submission.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	reportType := queue.ReportTypeStandard
	if req.ReportType == string(queue.ReportTypeAgent) {
		reportType = queue.ReportTypeAgent
	}

	ticker := domain.Canonical(req.Ticker)
	taskID, err := s.cfg.Pool.Submit(ticker, reportType, req.ForceRefresh, queue.PriorityHigh)
	var dup *queue.ErrDuplicateTicker
	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, analyzeResponse{TaskID: dup.ExistingID})
	case err != nil:
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, analyzeResponse{TaskID: taskID})
	}
}

// handleTaskStatus implements GET /analysis/status/{task_id}.
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	task, ok := s.cfg.TaskStore.Get(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleTaskList implements GET /analysis/tasks, optionally filtered
// by ?status=.
func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	status := domain.TaskStatus(r.URL.Query().Get("status"))
	tasks := s.cfg.TaskStore.List(status)
	writeJSON(w, http.StatusOK, tasks)
}
