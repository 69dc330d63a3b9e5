package domain

import "time"

type User struct {
	ID               string // UUIDv4
	Email            string // stored lowercase
	Name             string
	PasswordHash     string // argon2 encoded
	Active           bool
	FailedAttempts   int
	LockedUntil      *time.Time // nullable, account locked while in the future
	TwoFactorEnabled bool
	TOTPSecret       *string // nullable, base32 encoded
	LastLoginAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LockedAt reports whether the account is time-locked at the given instant.
func (u *User) LockedAt(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
