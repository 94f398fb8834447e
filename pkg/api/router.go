package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/ingest"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// Deps holds the services the router exposes.
type Deps struct {
	Submitter  *dispatch.Submitter
	Records    notification.Storage
	History    notification.HistoryStorage
	Normalizer *ingest.Normalizer
	Jobs       queue.InspectorRepository

	// WebhookAPIKey, when set, is required in the X-API-KEY header on
	// webhook routes.
	WebhookAPIKey string

	// Healthchecks are dependency probes run by the readiness endpoint.
	Healthchecks []func(context.Context) error

	Logger *slog.Logger
}

// NewRouter builds the HTTP surface of the delivery core.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	notifH := NewNotificationHandler(deps.Submitter, deps.Records, deps.History)
	webhookH := NewWebhookHandler(deps.Normalizer)
	jobH := NewJobHandler(deps.Jobs)

	r.Get("/healthz", httpserver.HealthCheckHandler(context.Background(), log, deps.Healthchecks...))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/notifications", notifH.Submit)
		r.Get("/notifications/{id}", notifH.Get)
		r.Get("/notifications/{id}/history", notifH.History)

		r.With(APIKey(deps.WebhookAPIKey)).
			Post("/webhooks/{provider}", webhookH.Receive)

		r.Get("/jobs", jobH.List)
		r.Get("/jobs/stats", jobH.Stats)
		r.Get("/jobs/{id}", jobH.Get)
		r.Post("/jobs/{id}/retry", jobH.Retry)
		r.Delete("/jobs/{id}", jobH.Delete)
	})

	return r
}
