package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/akozlov/cashfolio/internal/api/middleware"
	"github.com/akozlov/cashfolio/internal/jobs"
	"github.com/akozlov/cashfolio/internal/scheduler"
)

// MaterializeHandler handles on-demand materialization triggers and job
// status queries.
type MaterializeHandler struct {
	scheduler *scheduler.Scheduler
	jobStore  jobs.JobStore
	log       zerolog.Logger
}

// NewMaterializeHandler creates a new materialize handler.
func NewMaterializeHandler(sched *scheduler.Scheduler, jobStore jobs.JobStore, log zerolog.Logger) *MaterializeHandler {
	return &MaterializeHandler{scheduler: sched, jobStore: jobStore, log: log}
}

// Trigger handles POST /api/materialize
// The optional as_of field backfills or replays a run at a fixed instant.
func (h *MaterializeHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AsOf *string `json:"as_of"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	var asOf *time.Time
	if req.AsOf != nil {
		parsed, err := time.Parse(time.RFC3339, *req.AsOf)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid as_of, expected RFC 3339")
			return
		}
		asOf = &parsed
	}

	if err := h.scheduler.TriggerNow(r.Context(), asOf, "manual"); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue materialization")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue materialization")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "enqueued"})
}

// ListJobs handles GET /api/materialize/jobs
func (h *MaterializeHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(r.URL.Query().Get("status")),
		Reason: r.URL.Query().Get("reason"),
	}

	list, err := h.jobStore.ListJobs(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// GetJob handles GET /api/materialize/jobs/{id}
func (h *MaterializeHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobStore.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}
