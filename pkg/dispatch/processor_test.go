package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/provider"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

func TestProcessor_RendersTemplateBeforeSend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := t.TempDir()
	env := newTestEnv(t, provider.Registry{
		notification.ChannelEmail: provider.NewDevGateway("dev-email", outbox),
	})

	require.NoError(t, env.templates.Set(ctx, template.Template{
		Key:     "welcome",
		Channel: notification.ChannelEmail,
		Locale:  "en",
		Subject: "Welcome, {{name}}!",
		Body:    "Hi {{name}}, your plan is {{plan.tier}}.",
	}))

	res, err := env.submitter.Submit(ctx, dispatch.SubmitInput{
		UserID:      "user-1",
		Type:        notification.TypeTransactional,
		Channel:     notification.ChannelEmail,
		Recipient:   "ada@example.com",
		TemplateKey: "welcome",
		Locale:      "en",
		Subject:     "Welcome!",
		Body:        "Hi",
		Variables: map[string]any{
			"name": "Ada",
			"plan": map[string]any{"tier": "pro"},
		},
	})
	require.NoError(t, err)

	job, err := env.jobs.ClaimJob(ctx, uuid.New(), string(notification.ChannelEmail), time.Minute)
	require.NoError(t, err)
	require.Equal(t, res.JobID, job.ID)
	require.NoError(t, env.processor.Process(ctx, job))

	n, err := env.records.Get(ctx, res.NotificationID)
	require.NoError(t, err)
	require.Equal(t, notification.StatusSent, n.Status)
	require.NotNil(t, n.SentAt)

	hist, err := env.records.ListByNotification(ctx, res.NotificationID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, notification.StatusSent, hist[0].Status)
	require.Equal(t, "dev-email", hist[0].Provider)
	require.NotEmpty(t, hist[0].ProviderMessageID)
	require.Equal(t, 1, hist[0].Attempt)

	entries, err := os.ReadDir(outbox)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(outbox, entries[0].Name()))
	require.NoError(t, err)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, "Welcome, Ada!", msg["subject"])
	require.Equal(t, "Hi Ada, your plan is pro.", msg["body"])
}

func TestProcessor_PreferenceBlockedAtDeliveryTime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := provider.NewFaultyGateway(provider.NewDevGateway("dev-email", t.TempDir()))
	env := newTestEnv(t, provider.Registry{notification.ChannelEmail: gw})
	env.allow(t, "user-1", notification.TypePromotional, notification.ChannelEmail)

	res, err := env.submitter.Submit(ctx, dispatch.SubmitInput{
		UserID:    "user-1",
		Type:      notification.TypePromotional,
		Channel:   notification.ChannelEmail,
		Recipient: "user@example.com",
		Body:      "Big sale",
	})
	require.NoError(t, err)
	require.False(t, res.Blocked)

	// The user mutes the pair between submit and delivery.
	require.NoError(t, env.prefs.Set(ctx, preference.Preference{
		UserID:  "user-1",
		Type:    notification.TypePromotional,
		Channel: notification.ChannelEmail,
		Enabled: true,
		Mute:    true,
	}))

	job, err := env.jobs.ClaimJob(ctx, uuid.New(), string(notification.ChannelEmail), time.Minute)
	require.NoError(t, err)

	err = env.processor.Process(ctx, job)
	require.ErrorIs(t, err, queue.ErrNonRetryable)
	require.ErrorIs(t, err, dispatch.ErrPreferenceBlocked)
	require.Zero(t, gw.Calls(), "provider must not be called on a policy denial")

	n, err := env.records.Get(ctx, res.NotificationID)
	require.NoError(t, err)
	require.Equal(t, notification.StatusFailed, n.Status)
	require.NotNil(t, n.Error)
	require.Equal(t, dispatch.ReasonPreferenceBlocked, *n.Error)

	hist, err := env.records.ListByNotification(ctx, res.NotificationID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, dispatch.ReasonPreferenceBlocked, hist[0].Error)
	require.Equal(t, 1, hist[0].Attempt)
}

func TestDelivery_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("provider timeout")
	sms := provider.NewFaultyGateway(provider.NewDevGateway("dev-sms", t.TempDir()), boom, boom, nil)
	env := newTestEnv(t, provider.Registry{notification.ChannelSMS: sms})
	env.allow(t, "user-1", notification.TypeReminder, notification.ChannelSMS)

	res, err := env.submitter.Submit(ctx, dispatch.SubmitInput{
		UserID:    "user-1",
		Type:      notification.TypeReminder,
		Channel:   notification.ChannelSMS,
		Priority:  7,
		Recipient: "+15550001111",
		Body:      "Your appointment is tomorrow at 10:00",
	})
	require.NoError(t, err)

	env.startWorker(t, notification.ChannelSMS)

	require.Eventually(t, func() bool {
		n, err := env.records.Get(ctx, res.NotificationID)
		return err == nil && n.Status == notification.StatusSent
	}, 5*time.Second, 10*time.Millisecond, "notification should be sent on the third attempt")

	n, err := env.records.Get(ctx, res.NotificationID)
	require.NoError(t, err)
	require.Equal(t, 2, n.RetryCount)
	require.NotNil(t, n.SentAt)
	require.Nil(t, n.Error)

	hist, err := env.records.ListByNotification(ctx, res.NotificationID)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	require.Equal(t, notification.StatusFailed, hist[0].Status)
	require.Equal(t, notification.StatusFailed, hist[1].Status)
	require.Equal(t, notification.StatusSent, hist[2].Status)
	for i, rec := range hist {
		require.Equal(t, i+1, rec.Attempt)
	}
	require.Equal(t, "dev-sms", hist[2].Provider)
	require.NotEmpty(t, hist[2].ProviderMessageID)

	require.Eventually(t, func() bool {
		job, err := env.jobs.GetJob(ctx, res.JobID)
		return err == nil && job.Status == queue.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	job, err := env.jobs.GetJob(ctx, res.JobID)
	require.NoError(t, err)
	require.Equal(t, 3, job.Attempts)
}

func TestDelivery_FailoverToEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("push endpoint gone")
	push := provider.NewFaultyGateway(provider.NewDevGateway("dev-push", t.TempDir()), boom, boom, boom)
	email := provider.NewDevGateway("dev-email", t.TempDir())
	env := newTestEnv(t, provider.Registry{
		notification.ChannelPush:  push,
		notification.ChannelEmail: email,
	})
	env.allow(t, "user-1", notification.TypeReminder, notification.ChannelPush)
	env.allow(t, "user-1", notification.TypeReminder, notification.ChannelEmail)

	res, err := env.submitter.Submit(ctx, dispatch.SubmitInput{
		UserID:    "user-1",
		Type:      notification.TypeReminder,
		Channel:   notification.ChannelPush,
		Priority:  9,
		Recipient: "arn:aws:sns:us-east-1:123:endpoint/APNS/app/dev",
		Subject:   "Reminder",
		Body:      "Your appointment is tomorrow",
	})
	require.NoError(t, err)

	env.startWorker(t, notification.ChannelPush)
	env.startWorker(t, notification.ChannelEmail)

	require.Eventually(t, func() bool {
		stats, err := env.jobs.Stats(ctx, string(notification.ChannelEmail))
		return err == nil && stats.Completed == 1
	}, 5*time.Second, 10*time.Millisecond, "failover email job should complete")

	n, err := env.records.Get(ctx, res.NotificationID)
	require.NoError(t, err)
	// The original record stays terminally failed; the failover attempt
	// lives in the ledger and the failover fields.
	require.Equal(t, notification.StatusFailed, n.Status)
	require.Equal(t, 2, n.RetryCount)
	require.NotNil(t, n.FailoverChannel)
	require.Equal(t, notification.ChannelEmail, *n.FailoverChannel)
	require.NotNil(t, n.FailoverStatus)
	require.Equal(t, notification.FailoverSuccess, *n.FailoverStatus)

	hist, err := env.records.ListByNotification(ctx, res.NotificationID)
	require.NoError(t, err)
	require.Len(t, hist, 4)
	for _, rec := range hist[:3] {
		require.Equal(t, notification.StatusFailed, rec.Status)
		require.Equal(t, notification.ChannelPush, rec.Channel)
	}
	require.Equal(t, notification.StatusSent, hist[3].Status)
	require.Equal(t, notification.ChannelEmail, hist[3].Channel)
	require.Equal(t, 1, hist[3].Attempt)
	require.Equal(t, "dev-email", hist[3].Provider)

	// Exactly one failover job, carrying the original priority.
	jobs, total, err := env.jobs.ListJobs(ctx, queue.Filter{Queue: string(notification.ChannelEmail)})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.True(t, jobs[0].IsFailover)
	require.Equal(t, notification.Priority(9), jobs[0].Priority)

	pushStats, err := env.jobs.Stats(ctx, string(notification.ChannelPush))
	require.NoError(t, err)
	require.Equal(t, 1, pushStats.Failed)
}

func TestDelivery_FailoverJobExhaustionDoesNotCascade(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pushBoom := errors.New("push endpoint gone")
	emailBoom := errors.New("email relay down")
	push := provider.NewFaultyGateway(provider.NewDevGateway("dev-push", t.TempDir()),
		pushBoom, pushBoom, pushBoom)
	email := provider.NewFaultyGateway(provider.NewDevGateway("dev-email", t.TempDir()),
		emailBoom, emailBoom, emailBoom)
	env := newTestEnv(t, provider.Registry{
		notification.ChannelPush:  push,
		notification.ChannelEmail: email,
	})
	env.allow(t, "user-1", notification.TypeReminder, notification.ChannelPush)
	env.allow(t, "user-1", notification.TypeReminder, notification.ChannelEmail)

	res, err := env.submitter.Submit(ctx, dispatch.SubmitInput{
		UserID:    "user-1",
		Type:      notification.TypeReminder,
		Channel:   notification.ChannelPush,
		Recipient: "arn:aws:sns:us-east-1:123:endpoint/APNS/app/dev",
		Body:      "Your appointment is tomorrow",
	})
	require.NoError(t, err)

	env.startWorker(t, notification.ChannelPush)
	env.startWorker(t, notification.ChannelEmail)

	// Both the original job and the backup email job exhaust their
	// attempt budgets.
	require.Eventually(t, func() bool {
		stats, err := env.jobs.Stats(ctx, string(notification.ChannelEmail))
		return err == nil && stats.Failed == 1
	}, 5*time.Second, 10*time.Millisecond, "failover email job should fail terminally")

	// The failed backup job must not spawn a second failover; the email
	// queue holds exactly the one backup job and no queue gained more.
	jobs, total, err := env.jobs.ListJobs(ctx, queue.Filter{Queue: string(notification.ChannelEmail)})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.True(t, jobs[0].IsFailover)
	require.Equal(t, 3, jobs[0].Attempts)

	for _, ch := range []notification.Channel{notification.ChannelSMS, notification.ChannelPush} {
		stats, err := env.jobs.Stats(ctx, string(ch))
		require.NoError(t, err)
		require.Equal(t, 0, stats.Waiting+stats.Delayed+stats.Active)
	}

	n, err := env.records.Get(ctx, res.NotificationID)
	require.NoError(t, err)
	require.Equal(t, notification.StatusFailed, n.Status)
	require.NotNil(t, n.FailoverChannel)
	require.Equal(t, notification.ChannelEmail, *n.FailoverChannel)
	// Failover status reflects the enqueue of the backup job, which
	// succeeded even though the job itself later exhausted.
	require.NotNil(t, n.FailoverStatus)
	require.Equal(t, notification.FailoverSuccess, *n.FailoverStatus)
}

// capturingHistory keeps every ledger row exactly as the caller built
// it before delegating to the real storage.
type capturingHistory struct {
	notification.HistoryStorage
	appended []notification.HistoryRecord
}

func (c *capturingHistory) Append(ctx context.Context, rec *notification.HistoryRecord) error {
	c.appended = append(c.appended, *rec)
	return c.HistoryStorage.Append(ctx, rec)
}

func TestDelivery_LedgerRowsCarryIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	records := notification.NewMemoryStorage()
	hist := &capturingHistory{HistoryStorage: records}
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
	submitter, err := dispatch.NewSubmitter(records, hist, resolver, queues)
	require.NoError(t, err)
	gw := provider.NewDevGateway("dev-email", t.TempDir())
	processor, err := dispatch.NewProcessor(records, hist, resolver, renderer,
		provider.Registry{notification.ChannelEmail: gw}, nil,
		dispatch.WithBackoffStrategy(queue.FixedBackoff{}))
	require.NoError(t, err)

	// A blocked submission writes a ledger row through the submitter.
	blocked, err := submitter.Submit(ctx, dispatch.SubmitInput{
		UserID:    "user-1",
		Type:      notification.TypePromotional,
		Channel:   notification.ChannelSMS,
		Recipient: "+15550001111",
		Body:      "Big sale",
	})
	require.NoError(t, err)
	require.True(t, blocked.Blocked)

	// A delivered submission writes one through the processor.
	res, err := submitter.Submit(ctx, dispatch.SubmitInput{
		UserID:    "user-1",
		Type:      notification.TypeTransactional,
		Channel:   notification.ChannelEmail,
		Recipient: "user@example.com",
		Body:      "Your receipt",
	})
	require.NoError(t, err)
	job, err := jobs.ClaimJob(ctx, uuid.New(), string(notification.ChannelEmail), time.Minute)
	require.NoError(t, err)
	require.Equal(t, res.JobID, job.ID)
	require.NoError(t, processor.Process(ctx, job))

	// SQL-backed history uses the id as primary key, so rows must not
	// rely on the storage to invent one.
	require.Len(t, hist.appended, 2)
	for _, rec := range hist.appended {
		require.NotEqual(t, uuid.Nil, rec.ID)
	}
}
