package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/ingest"
)

// maxWebhookBody caps inbound webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// WebhookHandler receives provider status callbacks.
type WebhookHandler struct {
	normalizer *ingest.Normalizer
}

func NewWebhookHandler(normalizer *ingest.Normalizer) *WebhookHandler {
	return &WebhookHandler{normalizer: normalizer}
}

// Receive ingests one provider webhook request. Partial application is
// still a success: providers retry non-2xx responses, and re-posting a
// batch where some events were orphans would not change the outcome.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	processed, total, err := h.normalizer.Ingest(r.Context(), providerName, body)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrUnsupportedProvider):
			writeError(w, http.StatusNotFound, "unsupported provider")
		case errors.Is(err, ingest.ErrMalformedPayload):
			writeError(w, http.StatusBadRequest, "malformed payload")
		default:
			writeError(w, http.StatusInternalServerError, "failed to process webhook")
		}
		return
	}

	writeJSON(w, http.StatusOK, WebhookEnvelope{Processed: processed, Total: total})
}
