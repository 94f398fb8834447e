package api

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SubmitEnvelope wraps submission responses.
type SubmitEnvelope struct {
	NotificationID string `json:"notification_id"`
	JobID          string `json:"job_id,omitempty"`
	Status         string `json:"status"`
}

// HistoryEnvelope wraps delivery history responses.
type HistoryEnvelope struct {
	NotificationID string                       `json:"notification_id"`
	History        []notification.HistoryRecord `json:"history"`
}

// WebhookEnvelope reports how many webhook events were applied.
type WebhookEnvelope struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// PaginatedJobsEnvelope wraps paginated job list responses.
type PaginatedJobsEnvelope struct {
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	Data   []queue.Job `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
