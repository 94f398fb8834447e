// Package notification defines the core domain model for multi-channel
// notification delivery: the notification record, the canonical status
// vocabulary with its guarded state machine, and the append-only
// delivery history ledger.
//
// # Status machine
//
// A notification moves queued → sending → sent → delivered, with
// alternate terminal states failed and bounced, plus the observational
// opened/clicked states reported by provider webhooks. Because a
// delivery worker's synchronous outcome and an asynchronous provider
// webhook can race to update the same record, every status write goes
// through Storage.Transition, which only applies the change when the
// record's current status is still a valid source for the target
// status. A late "sent" webhook arriving after the record reached
// "delivered" is rejected with ErrStaleTransition rather than
// downgrading the terminal state.
//
// # History ledger
//
// Every delivery attempt and status event appends a HistoryRecord. Rows
// are immutable; the provider message id correlates inbound webhook
// events back to the notification that produced them.
//
// # Usage
//
//	store := notification.NewMemoryStorage()
//
//	n := &notification.Notification{
//	    ID:      uuid.New(),
//	    UserID:  "user-1",
//	    Type:    notification.TypeTransactional,
//	    Channel: notification.ChannelEmail,
//	    Status:  notification.StatusQueued,
//	}
//	_ = store.Create(ctx, n)
//
//	// Guarded update: fails with ErrStaleTransition if the record
//	// is no longer in a compatible state.
//	err := store.Transition(ctx, n.ID, notification.StatusSending)
package notification
