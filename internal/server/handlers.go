package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/choropleth"
	"github.com/sells-group/atlas-cli/internal/store"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type runListResponse struct {
	Items []store.Run `json:"items"`
}

type resultsResponse struct {
	RunID string                    `json:"run_id"`
	Items []choropleth.RegionResult `json:"items"`
}

func (s *Server) handleLegend(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, choropleth.Legend())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter, err := buildRunFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list runs")
		return
	}

	if runs == nil {
		runs = []store.Run{}
	}
	s.respondJSON(w, http.StatusOK, runListResponse{Items: runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("run %s not found", runID))
			return
		}
		zap.L().Error("server: get run", zap.String("run_id", runID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load run")
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if _, err := s.store.GetRun(r.Context(), runID); err != nil {
		if eris.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("run %s not found", runID))
			return
		}
		zap.L().Error("server: get run", zap.String("run_id", runID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load run")
		return
	}

	results, err := s.store.GetResults(r.Context(), runID)
	if err != nil {
		zap.L().Error("server: get results", zap.String("run_id", runID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load results")
		return
	}

	if results == nil {
		results = []choropleth.RegionResult{}
	}
	s.respondJSON(w, http.StatusOK, resultsResponse{RunID: runID, Items: results})
}

func buildRunFilter(query url.Values) (store.RunFilter, error) {
	var filter store.RunFilter

	if val := strings.TrimSpace(query.Get("status")); val != "" {
		switch store.RunStatus(val) {
		case store.RunStatusQueued, store.RunStatusRunning, store.RunStatusComplete, store.RunStatusFailed:
			filter.Status = store.RunStatus(val)
		default:
			return filter, eris.Errorf("invalid status value %q", val)
		}
	}
	if val := strings.TrimSpace(query.Get("level")); val != "" {
		filter.Level = val
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 1 {
			return filter, eris.New("invalid limit value")
		}
		filter.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("offset")); val != "" {
		offset, err := strconv.Atoi(val)
		if err != nil || offset < 0 {
			return filter, eris.New("invalid offset value")
		}
		filter.Offset = offset
	}
	return filter, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			zap.L().Error("server: encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
