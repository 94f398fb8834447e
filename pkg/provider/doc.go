// Package provider adapts external delivery services behind a small
// Gateway interface so the dispatch pipeline stays provider-agnostic.
//
// # Gateways
//
// - PostmarkGateway sends transactional email through Postmark
// - SNSSMSGateway and SNSPushGateway publish through AWS SNS
// - DevGateway writes deliveries to local files for development
// - FaultyGateway wraps any gateway with a scripted failure plan for tests
//
// # Basic Usage
//
//	import (
//	    "github.com/dmitrymomot/notifykit/pkg/notification"
//	    "github.com/dmitrymomot/notifykit/pkg/provider"
//	)
//
//	email, err := provider.NewPostmarkGateway(provider.PostmarkConfig{
//	    ServerToken: "token",
//	    FromEmail:   "no-reply@example.com",
//	})
//
//	registry := provider.Registry{
//	    notification.ChannelEmail: email,
//	}
//
// Every successful send returns a Receipt carrying the provider name and
// the provider-assigned message ID, which the ingest package later uses
// to correlate webhook callbacks with notifications.
package provider
