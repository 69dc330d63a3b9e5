package domain

import "time"

type LoginAttempt struct {
	ID        string  // UUIDv4
	UserID    *string // nil when the submitted email matched no account
	Email     string  // as submitted, lowercased
	IP        string
	UserAgent string // truncated to 255
	Success   bool
	CreatedAt time.Time
}
