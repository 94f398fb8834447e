package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func TestParsePostmark(t *testing.T) {
	t.Parallel()

	t.Run("delivery event", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`{
			"RecordType": "Delivery",
			"MessageID": "pm-123",
			"DeliveredAt": "2026-08-28T10:15:00Z"
		}`)

		events, err := parsePostmark(payload)
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, "pm-123", events[0].ProviderMessageID)
		require.Equal(t, notification.StatusDelivered, events[0].Status)
		require.Empty(t, events[0].Error)
		require.Equal(t, time.Date(2026, 8, 28, 10, 15, 0, 0, time.UTC), events[0].OccurredAt)
	})

	t.Run("bounce carries the description", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`{
			"RecordType": "Bounce",
			"MessageID": "pm-124",
			"BouncedAt": "2026-08-28T10:16:00Z",
			"Description": "The server was unable to deliver your message"
		}`)

		events, err := parsePostmark(payload)
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, notification.StatusBounced, events[0].Status)
		require.Equal(t, "The server was unable to deliver your message", events[0].Error)
	})

	t.Run("spam complaint maps to failed", func(t *testing.T) {
		t.Parallel()

		events, err := parsePostmark([]byte(`{"RecordType":"SpamComplaint","MessageID":"pm-125"}`))
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, notification.StatusFailed, events[0].Status)
	})

	t.Run("open and click are observational", func(t *testing.T) {
		t.Parallel()

		events, err := parsePostmark([]byte(`{"RecordType":"Open","MessageID":"pm-126"}`))
		require.NoError(t, err)
		require.Equal(t, notification.StatusOpened, events[0].Status)

		events, err = parsePostmark([]byte(`{"RecordType":"Click","MessageID":"pm-126"}`))
		require.NoError(t, err)
		require.Equal(t, notification.StatusClicked, events[0].Status)
	})

	t.Run("unknown record type yields nothing", func(t *testing.T) {
		t.Parallel()

		events, err := parsePostmark([]byte(`{"RecordType":"SubscriptionChange","MessageID":"pm-127"}`))
		require.NoError(t, err)
		require.Empty(t, events)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		t.Parallel()

		_, err := parsePostmark([]byte(`not json`))
		require.ErrorIs(t, err, ErrMalformedPayload)

		_, err = parsePostmark([]byte(`{"RecordType":"Delivery"}`))
		require.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestParseSendgrid(t *testing.T) {
	t.Parallel()

	t.Run("batch with mixed events", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`[
			{"sg_message_id":"sg-1","event":"processed","timestamp":1756375200},
			{"sg_message_id":"sg-1","event":"delivered","timestamp":1756375260},
			{"sg_message_id":"sg-2","event":"bounce","timestamp":1756375300,"reason":"550 mailbox unavailable"},
			{"sg_message_id":"sg-3","event":"dropped","timestamp":1756375300},
			{"sg_message_id":"sg-1","event":"open","timestamp":1756375400},
			{"sg_message_id":"sg-1","event":"click","timestamp":1756375500},
			{"sg_message_id":"sg-4","event":"group_unsubscribe","timestamp":1756375600}
		]`)

		events, err := parseSendgrid(payload)
		require.NoError(t, err)
		require.Len(t, events, 6, "unmapped events are dropped")

		require.Equal(t, notification.StatusSent, events[0].Status)
		require.Equal(t, notification.StatusDelivered, events[1].Status)
		require.Equal(t, notification.StatusBounced, events[2].Status)
		require.Equal(t, "550 mailbox unavailable", events[2].Error)
		require.Equal(t, notification.StatusFailed, events[3].Status)
		require.Equal(t, "dropped", events[3].Error)
		require.Equal(t, notification.StatusOpened, events[4].Status)
		require.Equal(t, notification.StatusClicked, events[5].Status)

		require.Equal(t, time.Unix(1756375200, 0), events[0].OccurredAt)
	})

	t.Run("deferred is transient and dropped", func(t *testing.T) {
		t.Parallel()

		// SendGrid retries deferred sends on its own; surfacing it as a
		// terminal failure would block the later delivered transition.
		events, err := parseSendgrid([]byte(`[
			{"sg_message_id":"sg-5","event":"deferred","timestamp":1756375200},
			{"sg_message_id":"sg-5","event":"delivered","timestamp":1756375800}
		]`))
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, notification.StatusDelivered, events[0].Status)
	})

	t.Run("rejects non-array payloads", func(t *testing.T) {
		t.Parallel()

		_, err := parseSendgrid([]byte(`{"event":"delivered"}`))
		require.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestParseTwilio(t *testing.T) {
	t.Parallel()

	t.Run("delivered callback", func(t *testing.T) {
		t.Parallel()

		events, err := parseTwilio([]byte("MessageSid=SM123&MessageStatus=delivered&To=%2B15550001111"))
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, "SM123", events[0].ProviderMessageID)
		require.Equal(t, notification.StatusDelivered, events[0].Status)
	})

	t.Run("undelivered carries the error code", func(t *testing.T) {
		t.Parallel()

		events, err := parseTwilio([]byte("MessageSid=SM124&MessageStatus=undelivered&ErrorCode=30003"))
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, notification.StatusFailed, events[0].Status)
		require.Equal(t, "twilio error 30003", events[0].Error)
	})

	t.Run("in-flight statuses yield nothing", func(t *testing.T) {
		t.Parallel()

		events, err := parseTwilio([]byte("MessageSid=SM125&MessageStatus=queued"))
		require.NoError(t, err)
		require.Empty(t, events)
	})

	t.Run("requires a message sid", func(t *testing.T) {
		t.Parallel()

		_, err := parseTwilio([]byte("MessageStatus=delivered"))
		require.ErrorIs(t, err, ErrMalformedPayload)
	})
}
