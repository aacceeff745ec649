package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/langbridge/extractd/internal/annotate"
	"github.com/langbridge/extractd/internal/export"
	"github.com/langbridge/extractd/internal/job"
	"github.com/langbridge/extractd/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{"now": time.Now().Unix()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var spec job.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	j, err := s.orch.Submit(r.Context(), spec)
	if err != nil {
		if errors.Is(err, job.ErrInvalidSpec) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.orch.List(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.logger.Error("list jobs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	j, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleAnnotated(w http.ResponseWriter, r *http.Request) {
	j, ok := s.completedJob(w, r)
	if !ok {
		return
	}
	segments := annotate.Annotate(j.InputText, j.Result.Extractions)
	if segments == nil {
		segments = []annotate.Segment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   j.ID,
		"segments": segments,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	j, ok := s.completedJob(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var (
		payload     []byte
		err         error
		contentType string
	)
	switch format {
	case "csv":
		payload, err = export.ToCSV(j.Result.Extractions)
		contentType = "text/csv"
	case "xlsx":
		payload, err = export.ToXLSX(j.Result.Extractions)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "jsonl":
		payload, err = export.ToJSONL(j)
		contentType = "application/jsonl"
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}
	if err != nil {
		s.logger.Error("export failed", "job_id", j.ID, "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", j.ID, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	id := chi.URLParam(r, "id")
	j, err := s.orch.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return nil, false
		}
		s.logger.Error("get job failed", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return nil, false
	}
	return j, true
}

// completedJob resolves the job and rejects anything not terminal-completed:
// annotated and export views only exist once extractions are stored.
func (s *Server) completedJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	j, ok := s.lookupJob(w, r)
	if !ok {
		return nil, false
	}
	if j.Status != job.StatusCompleted || j.Result == nil {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is %s, not completed", j.Status))
		return nil, false
	}
	return j, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
