package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// JobHandler exposes the operator-facing queue control surface.
type JobHandler struct {
	jobs queue.InspectorRepository
}

func NewJobHandler(jobs queue.InspectorRepository) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// List returns jobs matching the query filters with pagination.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	f := queue.Filter{
		Queue:  q.Get("queue"),
		Status: queue.JobStatus(q.Get("status")),
		Limit:  limit,
		Offset: offset,
	}

	jobs, total, err := h.jobs.ListJobs(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, PaginatedJobsEnvelope{
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Data:   jobs,
	})
}

// Get returns one job.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Stats returns per-channel aggregate job counts.
func (h *JobHandler) Stats(w http.ResponseWriter, r *http.Request) {
	channels := []notification.Channel{
		notification.ChannelEmail,
		notification.ChannelSMS,
		notification.ChannelPush,
	}

	out := make(map[string]queue.Stats, len(channels))
	for _, ch := range channels {
		stats, err := h.jobs.Stats(r.Context(), string(ch))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load queue stats")
			return
		}
		out[string(ch)] = stats
	}
	writeJSON(w, http.StatusOK, out)
}

// Retry re-queues a terminally failed job with a fresh attempt budget.
func (h *JobHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := h.jobs.RetryJob(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, queue.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, queue.ErrJobNotFailed):
			writeError(w, http.StatusConflict, "job is not in failed status")
		default:
			writeError(w, http.StatusInternalServerError, "failed to retry job")
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "job queued for retry"})
}

// Delete removes a job unless it is active.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := h.jobs.DeleteJob(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, queue.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, queue.ErrJobActive):
			writeError(w, http.StatusConflict, "job is active")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete job")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
