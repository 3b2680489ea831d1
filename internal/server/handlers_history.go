package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleHistoryList implements GET /history, with optional ?ticker=,
// ?limit=, ?offset= filters.
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	reports, err := s.cfg.HistoryRepo.List(r.Context(), ticker, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleHistoryByID implements GET /history/{record_id}.
func (s *Server) handleHistoryByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "record_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record_id")
		return
	}
	rep, err := s.cfg.HistoryRepo.ByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rep == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleHistoryNews implements GET /history/{record_id}/news.
func (s *Server) handleHistoryNews(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "record_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record_id")
		return
	}
	rep, err := s.cfg.HistoryRepo.ByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rep == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	items, err := s.cfg.NewsRepo.ByRecordID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
