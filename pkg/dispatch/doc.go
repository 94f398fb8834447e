// Package dispatch orchestrates notification delivery: submission with
// a preference gate, per-channel queue management, the delivery
// processor driven by queue workers, and failover to the email channel
// when sms or push exhaust their attempts.
//
// # Flow
//
// Submit creates the notification record, checks the user's preference,
// and enqueues a delivery job on the channel queue. A channel worker
// later claims the job and hands it to the Processor, which re-checks
// the preference, renders content, calls the provider gateway, and
// records the outcome in the record and the history ledger. When the
// last attempt on sms or push fails, the FailoverCoordinator enqueues
// one email job carrying the same payload.
//
// # Wiring
//
//	jobs := queue.NewMemoryStorage()
//	queues, _ := dispatch.NewQueueManager(jobs)
//	submitter, _ := dispatch.NewSubmitter(notifications, history, resolver, queues)
//	failover, _ := dispatch.NewFailoverCoordinator(notifications, queues)
//	processor, _ := dispatch.NewProcessor(notifications, history, resolver, renderer, gateways, failover)
//
//	for _, ch := range []notification.Channel{notification.ChannelEmail, notification.ChannelSMS, notification.ChannelPush} {
//	    w, _ := queue.NewWorker(jobs, string(ch), processor)
//	    g.Go(w.Run(ctx))
//	}
package dispatch
