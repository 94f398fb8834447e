package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/provider"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

// testEnv wires the full delivery pipeline on in-memory storages.
type testEnv struct {
	records   *notification.MemoryStorage
	prefs     *preference.MemoryStorage
	templates *template.MemoryStorage
	jobs      *queue.MemoryStorage
	queues    *dispatch.QueueManager
	submitter *dispatch.Submitter
	processor *dispatch.Processor
}

func newTestEnv(t *testing.T, gateways provider.Registry) *testEnv {
	t.Helper()

	records := notification.NewMemoryStorage()
	prefs := preference.NewMemoryStorage()
	templates := template.NewMemoryStorage()
	jobs := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = jobs.Close() })

	resolver, err := preference.NewResolver(prefs)
	require.NoError(t, err)
	renderer, err := template.NewRenderer(templates)
	require.NoError(t, err)
	queues, err := dispatch.NewQueueManager(jobs)
	require.NoError(t, err)
	submitter, err := dispatch.NewSubmitter(records, records, resolver, queues)
	require.NoError(t, err)
	failover, err := dispatch.NewFailoverCoordinator(records, queues)
	require.NoError(t, err)

	// Zero backoff keeps retry-driven tests fast and deterministic.
	processor, err := dispatch.NewProcessor(records, records, resolver, renderer, gateways, failover,
		dispatch.WithBackoffStrategy(queue.FixedBackoff{}))
	require.NoError(t, err)

	return &testEnv{
		records:   records,
		prefs:     prefs,
		templates: templates,
		jobs:      jobs,
		queues:    queues,
		submitter: submitter,
		processor: processor,
	}
}

// allow stores an enabled preference for the triple.
func (e *testEnv) allow(t *testing.T, userID string, nt notification.Type, ch notification.Channel) {
	t.Helper()
	require.NoError(t, e.prefs.Set(context.Background(), preference.Preference{
		UserID:  userID,
		Type:    nt,
		Channel: ch,
		Enabled: true,
	}))
}

// startWorker runs a real channel worker against the shared processor
// until the test ends.
func (e *testEnv) startWorker(t *testing.T, ch notification.Channel) {
	t.Helper()

	w, err := queue.NewWorker(e.jobs, string(ch), e.processor,
		queue.WithPullInterval(5*time.Millisecond),
		queue.WithBackoff(queue.FixedBackoff{}),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })
}
