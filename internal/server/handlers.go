package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/job"
	"github.com/pteargryphon/creative-brief-generator/internal/stage"
)

type generateRequest struct {
	URL string `json:"url" validate:"required"`
}

type generateResponse struct {
	JobID string `json:"job_id"`
}

type debugResponse struct {
	APIStatus     string             `json:"api_status"`
	RecentErrors  []errlog.Entry     `json:"recent_errors"`
	ErrorCount    int                `json:"error_count"`
	ErrorsByStage map[string]int     `json:"errors_by_stage"`
	Environment   map[string]string  `json:"environment"`
	Executor      job.Stats          `json:"executor"`
	Breakers      map[string]string  `json:"breakers"`
	Jobs          map[job.Status]int `json:"jobs"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	// Bare domains are accepted and get a scheme before validation.
	target := stage.NormalizeURL(req.URL)
	if err := s.validate.Var(target, "url"); err != nil {
		writeError(w, http.StatusBadRequest, "url is invalid")
		return
	}

	id := s.store.Create()
	if err := s.exec.Submit(id, target); err != nil {
		_ = s.store.Update(id, func(rec *job.Record) { rec.Fail(err.Error()) })
		if errors.Is(err, job.ErrExecutorClosed) {
			writeError(w, http.StatusServiceUnavailable, "service is shutting down")
			return
		}
		zap.L().Error("server: submit job", zap.String("job_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start job")
		return
	}

	zap.L().Info("server: job accepted", zap.String("job_id", id), zap.String("url", target))
	writeJSON(w, http.StatusAccepted, generateResponse{JobID: id})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	if err := s.exec.Cancel(id); err != nil {
		if errors.Is(err, job.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not cancel job")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id, "status": "cancel requested"})
}

func (s *Server) debug(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, debugResponse{
		APIStatus:     errlog.CheckAPIStatus(s.creds),
		RecentErrors:  s.errors.Recent(recentErrorLimit),
		ErrorCount:    s.errors.Count(),
		ErrorsByStage: s.errorsByStage(),
		Environment:   errlog.Environment(s.creds),
		Executor:      s.exec.Stats(),
		Breakers:      s.breakerStates(),
		Jobs:          s.jobCounts(),
	})
}

// diagnosedStages are the errlog keys reported by /debug.
var diagnosedStages = []string{
	stage.NameBrandAnalysis,
	stage.NameCompetitorDiscovery,
	stage.NameAdIntelligence,
	stage.NamePainPointMining,
	stage.NameStrategySynthesis,
	stage.NamePublish,
	job.ErrorStage,
}

func (s *Server) errorsByStage() map[string]int {
	out := make(map[string]int, len(diagnosedStages))
	for _, name := range diagnosedStages {
		out[name] = len(s.errors.ForStage(name))
	}
	return out
}

func (s *Server) breakerStates() map[string]string {
	if s.breakers == nil {
		return map[string]string{}
	}
	return s.breakers.States()
}

// jobCounts tallies the stored records by status.
func (s *Server) jobCounts() map[job.Status]int {
	counts := map[job.Status]int{
		job.StatusProcessing: 0,
		job.StatusCompleted:  0,
		job.StatusFailed:     0,
	}
	for _, rec := range s.store.List() {
		counts[rec.Status]++
	}
	return counts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
