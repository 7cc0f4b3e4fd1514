package notify

import (
	"context"
	"time"

	"svitlobot/internal/schedule"
	"svitlobot/internal/storage"
)

// Config controls the dispatch pipeline.
type Config struct {
	// QueueSize bounds the job queue; a full queue drops new jobs (the next
	// poll cycle re-detects and re-enqueues them).
	QueueSize int
	// MaxPerMinute is the per-subscriber send budget enforced through the
	// store's CanSend gate.
	MaxPerMinute int
	// SendTimeout bounds one delivery attempt.
	SendTimeout time.Duration
	// SendDelay paces consecutive sends within a job so the messaging
	// endpoint's own limits are respected.
	SendDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.MaxPerMinute <= 0 {
		c.MaxPerMinute = 1
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 15 * time.Second
	}
	if c.SendDelay <= 0 {
		c.SendDelay = 100 * time.Millisecond
	}
	return c
}

// Job is one group's changed schedule headed for fan-out. Jobs live only in
// the queue; they are never persisted. The detector has already committed the
// underlying state, so a dropped job is re-derived on the next cycle.
type Job struct {
	Kind         schedule.Slot
	GroupCode    string
	ScheduleDate string
	Off          []string
	On           []string
	Maybe        []string
	// FirstForDate distinguishes "tomorrow's schedule published" from
	// "tomorrow's schedule changed". Today jobs never set it.
	FirstForDate bool
	// Prior is the state this change replaced, carried for diff rendering.
	// Nil for the first snapshot of a (group, slot). The store row is
	// already overwritten by the time the job is dispatched, so the diff
	// source has to travel with the job.
	Prior *schedule.State
}

// Messenger delivers one job's message to one chat. The call must honor ctx
// cancellation; the dispatcher wraps every attempt in a timeout.
type Messenger interface {
	SendJob(ctx context.Context, chatID int64, job Job) error
}

// SubscriberStore is the slice of storage the dispatcher needs.
type SubscriberStore interface {
	Subscribers(ctx context.Context, group string) ([]storage.Subscriber, error)
	CanSend(ctx context.Context, userID int64, maxPerMinute int) (bool, error)
	TouchLastSent(ctx context.Context, userID int64) error
}
