package notification

// Status is the canonical delivery status vocabulary, independent of any
// one provider's native status names.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusOpened    Status = "opened"
	StatusClicked   Status = "clicked"
	StatusBounced   Status = "bounced"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status ends the delivery trajectory.
// Opened and clicked are observational and do not count as terminal,
// even though they occur after delivery.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusBounced, StatusFailed:
		return true
	}
	return false
}

// transitions maps a target status to the set of statuses it may be
// entered from. A writer only applies its transition when the record's
// current status is still one of the allowed sources; this is the
// optimistic guard that keeps a late webhook from downgrading a
// terminal state a concurrent worker already recorded.
var transitions = map[Status][]Status{
	StatusSending:   {StatusQueued, StatusSending},
	StatusSent:      {StatusSending},
	StatusDelivered: {StatusSending, StatusSent, StatusOpened, StatusClicked},
	StatusOpened:    {StatusSent, StatusOpened, StatusClicked},
	StatusClicked:   {StatusSent, StatusOpened, StatusClicked},
	StatusBounced:   {StatusSending, StatusSent, StatusOpened, StatusClicked},
	StatusFailed:    {StatusQueued, StatusSending, StatusSent, StatusOpened, StatusClicked},
}

// CanTransition reports whether a record currently in status from may
// move to status to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// TransitionSources returns the statuses a record may be in for a move
// to the target status to succeed. SQL-backed storages use it to express
// the guard as a conditional update.
func TransitionSources(to Status) []Status {
	src := transitions[to]
	out := make([]Status, len(src))
	copy(out, src)
	return out
}
