package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// SubmitRequest is the submission payload.
type SubmitRequest struct {
	UserID      string         `json:"user_id" validate:"required"`
	Type        string         `json:"type" validate:"required,oneof=transactional reminder promotional system"`
	Channel     string         `json:"channel" validate:"required,oneof=email sms push"`
	Priority    int            `json:"priority" validate:"omitempty,min=1,max=10"`
	Recipient   string         `json:"recipient" validate:"required"`
	TemplateKey string         `json:"template_key"`
	Locale      string         `json:"locale"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	Variables   map[string]any `json:"variables"`
}

// NotificationHandler handles notification submission and lookup.
type NotificationHandler struct {
	submitter *dispatch.Submitter
	records   notification.Storage
	history   notification.HistoryStorage
}

func NewNotificationHandler(submitter *dispatch.Submitter, records notification.Storage, history notification.HistoryStorage) *NotificationHandler {
	return &NotificationHandler{submitter: submitter, records: records, history: history}
}

// Submit accepts a delivery request and enqueues it.
func (h *NotificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res, err := h.submitter.Submit(r.Context(), dispatch.SubmitInput{
		UserID:      req.UserID,
		Type:        notification.Type(req.Type),
		Channel:     notification.Channel(req.Channel),
		Priority:    notification.Priority(req.Priority),
		Recipient:   req.Recipient,
		TemplateKey: req.TemplateKey,
		Locale:      req.Locale,
		Subject:     req.Subject,
		Body:        req.Body,
		Variables:   req.Variables,
	})
	if err != nil {
		if errors.Is(err, dispatch.ErrInvalidInput) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to submit notification")
		return
	}

	if res.Blocked {
		writeJSON(w, http.StatusAccepted, SubmitEnvelope{
			NotificationID: res.NotificationID.String(),
			Status:         "blocked",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitEnvelope{
		NotificationID: res.NotificationID.String(),
		JobID:          res.JobID.String(),
		Status:         "queued",
	})
}

// Get returns one notification record.
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	n, err := h.records.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load notification")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// History returns the delivery ledger for one notification.
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if _, err := h.records.Get(r.Context(), id); err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load notification")
		return
	}

	hist, err := h.history.ListByNotification(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, HistoryEnvelope{
		NotificationID: id.String(),
		History:        hist,
	})
}
