// Package api exposes the delivery core over HTTP: notification
// submission and lookup, provider status webhooks, and the
// operator-facing job control surface.
//
// Routes are versioned under /v1, with /healthz outside the version
// prefix for probes:
//
//	POST   /v1/notifications
//	GET    /v1/notifications/{id}
//	GET    /v1/notifications/{id}/history
//	POST   /v1/webhooks/{provider}
//	GET    /v1/jobs
//	GET    /v1/jobs/stats
//	GET    /v1/jobs/{id}
//	POST   /v1/jobs/{id}/retry
//	DELETE /v1/jobs/{id}
package api
