// Package notify is the bounded-queue notification dispatcher.
//
// The ingestion loop enqueues a Job per detected schedule change; a single
// worker drains the queue, resolves the group's subscribers, applies the
// per-subscriber rate gate and delivery timeout, and reports a per-job
// summary. Enqueue never blocks: when the queue is full the job is dropped,
// which is safe because the detector has already persisted the new state and
// the next poll cycle re-emits anything still different.
package notify
