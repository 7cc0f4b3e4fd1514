package storage

import (
	"time"
)

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default (5s)
}

// Subscriber is one end-user row. GroupCode is empty until the user picks a
// group; such users are never delivery targets regardless of IsSubscribed.
type Subscriber struct {
	UserID       int64
	ChatID       int64
	GroupCode    string
	IsSubscribed bool
	LastSentAt   *time.Time
}
