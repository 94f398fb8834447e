// Package ingest normalizes asynchronous provider status webhooks into
// the canonical delivery status vocabulary and feeds them into the
// history ledger and the notification record.
//
// Each supported provider has its own parser for its native event
// shape: Postmark posts one JSON object per event, SendGrid posts a
// JSON array batching many messages, Twilio posts a form-encoded status
// callback. Events are correlated to notifications through the provider
// message id recorded at send time; events that match nothing are
// skipped as orphans.
//
//	normalizer, _ := ingest.NewNormalizer(records, history)
//	processed, total, err := normalizer.Ingest(ctx, ingest.ProviderPostmark, body)
package ingest
