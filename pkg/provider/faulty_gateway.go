package provider

import (
	"context"
	"sync"
)

// FaultyGateway wraps another gateway with a scripted failure plan, for
// test suites exercising retry, backoff, and failover paths. The plan
// is consumed one entry per send: a non-nil entry fails that call, a
// nil entry (or an exhausted plan) delegates to the wrapped gateway.
// It is a configurable fault-injection hook, never always-on logic.
type FaultyGateway struct {
	inner Gateway

	mu    sync.Mutex
	plan  []error
	calls int
}

// NewFaultyGateway wraps inner with the given failure plan.
func NewFaultyGateway(inner Gateway, plan ...error) *FaultyGateway {
	return &FaultyGateway{inner: inner, plan: plan}
}

// Name implements Gateway.
func (g *FaultyGateway) Name() string {
	return g.inner.Name()
}

// Send implements Gateway.
func (g *FaultyGateway) Send(ctx context.Context, recipient, subject, body string) (Receipt, error) {
	g.mu.Lock()
	var planned error
	if g.calls < len(g.plan) {
		planned = g.plan[g.calls]
	}
	g.calls++
	g.mu.Unlock()

	if planned != nil {
		return Receipt{}, planned
	}
	return g.inner.Send(ctx, recipient, subject, body)
}

// Calls returns how many sends were attempted.
func (g *FaultyGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
