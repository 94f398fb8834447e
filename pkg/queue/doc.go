// Package queue provides the per-channel priority work queue and the
// bounded delivery worker pools that drain it.
//
// The package is organised around three components interacting only
// through small repository interfaces:
//
//   - Enqueuer: creates pending delivery jobs on one channel queue
//   - Worker: claims due jobs and dispatches them to a Processor
//   - InspectorRepository: the operator surface for listing, stats, retry, delete
//
// Storage is pluggable: MemoryStorage backs tests and single-process
// deployments, RedisStorage backs multi-process ones. Both enforce the
// same ordering contract (higher priority dequeues first, FIFO within
// equal priority) and the same retention policy: completed jobs are
// pruned by count and age, failed jobs by count only so operators can
// inspect and manually retry them.
//
// # Retry policy
//
// Retry is the queue's responsibility; the Processor only reports
// success or failure per attempt. A failed attempt re-schedules the job
// after an exponential backoff delay (base doubling per attempt) until
// the attempt budget is exhausted, at which point the job is terminally
// failed. A Processor may wrap its error with NonRetryable to discard
// the job immediately, which is how policy denials bypass both retry
// and failover.
//
// # Usage
//
//	store := queue.NewMemoryStorage()
//	defer store.Close()
//
//	enq, _ := queue.NewEnqueuer(store, "email")
//	job, _ := enq.Enqueue(ctx, notifID, payload, queue.WithPriority(7))
//
//	w, _ := queue.NewWorker(store, "email", processor,
//	    queue.WithMaxConcurrency(10),
//	    queue.WithBackoff(queue.ExponentialBackoff{Base: 30 * time.Second}),
//	)
//	_ = w.Start(ctx)
//	defer w.Stop()
package queue
