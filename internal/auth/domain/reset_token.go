package domain

import "time"

type PasswordResetToken struct {
	ID        string // UUIDv4
	UserID    string
	TokenHash string // argon2 encoded, plaintext is never stored
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
