package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/ingest"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// seedSent creates a notification in sent status with one history row
// carrying the provider message id, as the delivery worker leaves it.
func seedSent(t *testing.T, records *notification.MemoryStorage, providerMessageID string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	n := &notification.Notification{
		ID:        uuid.New(),
		UserID:    "user-1",
		Type:      notification.TypeTransactional,
		Channel:   notification.ChannelEmail,
		Priority:  notification.PriorityDefault,
		Status:    notification.StatusQueued,
		Recipient: "user@example.com",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, records.Create(ctx, n))
	require.NoError(t, records.Transition(ctx, n.ID, notification.StatusSending))
	require.NoError(t, records.Transition(ctx, n.ID, notification.StatusSent))
	require.NoError(t, records.Append(ctx, &notification.HistoryRecord{
		NotificationID:    n.ID,
		Channel:           notification.ChannelEmail,
		Status:            notification.StatusSent,
		Provider:          "postmark",
		ProviderMessageID: providerMessageID,
		Attempt:           1,
		OccurredAt:        time.Now(),
	}))
	return n.ID
}

func TestNormalizer_Ingest(t *testing.T) {
	t.Parallel()

	t.Run("rejects unsupported providers", func(t *testing.T) {
		t.Parallel()

		records := notification.NewMemoryStorage()
		normalizer, err := ingest.NewNormalizer(records, records)
		require.NoError(t, err)

		_, _, err = normalizer.Ingest(context.Background(), "mailgun", []byte(`{}`))
		require.ErrorIs(t, err, ingest.ErrUnsupportedProvider)
		require.False(t, normalizer.Supported("mailgun"))
		require.True(t, normalizer.Supported(ingest.ProviderPostmark))
	})

	t.Run("advances record and appends ledger row", func(t *testing.T) {
		t.Parallel()

		records := notification.NewMemoryStorage()
		normalizer, err := ingest.NewNormalizer(records, records)
		require.NoError(t, err)
		ctx := context.Background()
		id := seedSent(t, records, "pm-1")

		// The delivery callback must sort after the seeded sent row
		// regardless of when the test runs.
		deliveredAt := time.Now().Add(time.Minute).UTC().Format(time.RFC3339)
		processed, total, err := normalizer.Ingest(ctx, ingest.ProviderPostmark,
			[]byte(`{"RecordType":"Delivery","MessageID":"pm-1","DeliveredAt":"`+deliveredAt+`"}`))
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, 1, processed)

		n, err := records.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, notification.StatusDelivered, n.Status)

		hist, err := records.ListByNotification(ctx, id)
		require.NoError(t, err)
		require.Len(t, hist, 2)
		require.Equal(t, notification.StatusDelivered, hist[1].Status)
		require.Equal(t, "pm-1", hist[1].ProviderMessageID)
		require.Equal(t, 2, hist[1].Attempt)
	})

	t.Run("skips orphan events", func(t *testing.T) {
		t.Parallel()

		records := notification.NewMemoryStorage()
		normalizer, err := ingest.NewNormalizer(records, records)
		require.NoError(t, err)
		ctx := context.Background()
		id := seedSent(t, records, "pm-known")

		// A batch mixing one known and one unknown message id: the
		// orphan is skipped without failing the batch.
		processed, total, err := normalizer.Ingest(ctx, ingest.ProviderSendgrid,
			[]byte(`[
				{"sg_message_id":"sg-unknown","event":"delivered","timestamp":1756375200},
				{"sg_message_id":"pm-known","event":"delivered","timestamp":1756375260}
			]`))
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Equal(t, 1, processed)

		n, err := records.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, notification.StatusDelivered, n.Status)
	})

	t.Run("late observational event cannot regress a terminal record", func(t *testing.T) {
		t.Parallel()

		records := notification.NewMemoryStorage()
		normalizer, err := ingest.NewNormalizer(records, records)
		require.NoError(t, err)
		ctx := context.Background()
		id := seedSent(t, records, "pm-2")

		_, _, err = normalizer.Ingest(ctx, ingest.ProviderPostmark,
			[]byte(`{"RecordType":"Delivery","MessageID":"pm-2"}`))
		require.NoError(t, err)

		// An open that was delayed in transit arrives after delivery.
		processed, total, err := normalizer.Ingest(ctx, ingest.ProviderPostmark,
			[]byte(`{"RecordType":"Open","MessageID":"pm-2"}`))
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, 1, processed)

		// The ledger keeps the open, the record stays delivered.
		n, err := records.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, notification.StatusDelivered, n.Status)

		hist, err := records.ListByNotification(ctx, id)
		require.NoError(t, err)
		require.Equal(t, notification.StatusOpened, hist[len(hist)-1].Status)
	})

	t.Run("bounce overrides sent", func(t *testing.T) {
		t.Parallel()

		records := notification.NewMemoryStorage()
		normalizer, err := ingest.NewNormalizer(records, records)
		require.NoError(t, err)
		ctx := context.Background()
		id := seedSent(t, records, "SM200")

		processed, total, err := normalizer.Ingest(ctx, ingest.ProviderTwilio,
			[]byte("MessageSid=SM200&MessageStatus=undelivered&ErrorCode=30005"))
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, 1, processed)

		// The record carries the provider's error text, not just the
		// ledger row.
		n, err := records.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, notification.StatusFailed, n.Status)
		require.NotNil(t, n.Error)
		require.Equal(t, "twilio error 30005", *n.Error)
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		t.Parallel()

		records := notification.NewMemoryStorage()
		normalizer, err := ingest.NewNormalizer(records, records)
		require.NoError(t, err)

		_, _, err = normalizer.Ingest(context.Background(), ingest.ProviderPostmark, []byte(`???`))
		require.ErrorIs(t, err, ingest.ErrMalformedPayload)
	})
}

// recordingHistory captures every ledger row exactly as the normalizer
// built it before delegating to the real storage.
type recordingHistory struct {
	notification.HistoryStorage
	appended []notification.HistoryRecord
}

func (r *recordingHistory) Append(ctx context.Context, rec *notification.HistoryRecord) error {
	r.appended = append(r.appended, *rec)
	return r.HistoryStorage.Append(ctx, rec)
}

func TestNormalizer_AssignsLedgerRowIDs(t *testing.T) {
	t.Parallel()

	records := notification.NewMemoryStorage()
	hist := &recordingHistory{HistoryStorage: records}
	normalizer, err := ingest.NewNormalizer(records, hist)
	require.NoError(t, err)
	ctx := context.Background()
	seedSent(t, records, "pm-ids")

	processed, total, err := normalizer.Ingest(ctx, ingest.ProviderPostmark,
		[]byte(`{"RecordType":"Delivery","MessageID":"pm-ids"}`))
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, 1, processed)

	// SQL-backed history uses the id as primary key, so rows must not
	// rely on the storage to invent one.
	require.Len(t, hist.appended, 1)
	for _, rec := range hist.appended {
		require.NotEqual(t, uuid.Nil, rec.ID)
	}
}
