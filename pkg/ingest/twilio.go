package ingest

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// twilioStatuses maps Twilio message statuses to the canonical set.
// The in-flight statuses (queued, accepted, sending) carry no new
// information for the record and are ignored.
var twilioStatuses = map[string]notification.Status{
	"sent":        notification.StatusSent,
	"delivered":   notification.StatusDelivered,
	"undelivered": notification.StatusFailed,
	"failed":      notification.StatusFailed,
}

// parseTwilio translates a Twilio status callback. Twilio posts
// form-encoded bodies with MessageSid and MessageStatus fields.
func parseTwilio(payload []byte) ([]NormalizedEvent, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	messageSid := form.Get("MessageSid")
	if messageSid == "" {
		messageSid = form.Get("SmsSid")
	}
	if messageSid == "" {
		return nil, fmt.Errorf("%w: missing MessageSid", ErrMalformedPayload)
	}

	status, ok := twilioStatuses[form.Get("MessageStatus")]
	if !ok {
		return nil, nil
	}

	errText := ""
	if status == notification.StatusFailed {
		errText = form.Get("ErrorMessage")
		if errText == "" && form.Get("ErrorCode") != "" {
			errText = "twilio error " + form.Get("ErrorCode")
		}
		if errText == "" {
			errText = form.Get("MessageStatus")
		}
	}

	return []NormalizedEvent{{
		ProviderMessageID: messageSid,
		Status:            status,
		Error:             errText,
		OccurredAt:        time.Now(),
	}}, nil
}
