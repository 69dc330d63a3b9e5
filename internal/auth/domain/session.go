package domain

import (
	"slices"
	"time"
)

// Session is the per-client authentication state. It is an explicit value
// passed into every service transition; the HTTP layer owns persistence
// (cookie id, in-process store) and the services own the flags.
type Session struct {
	ID string // ULID, regenerated on successful login

	UserID string // empty while anonymous
	Email  string
	Name   string
	Roles  []string // role slugs snapshotted at login

	Locked       bool
	LockedAt     *time.Time
	LastActivity time.Time

	TwoFactorRequired    bool
	TwoFactorVerified    bool
	PendingTwoFactorUser string // user id awaiting OTP verification

	CreatedAt time.Time
}

// Authenticated reports whether a login has completed, including the second
// factor when one is required.
func (s *Session) Authenticated() bool {
	if s.UserID == "" {
		return false
	}
	if s.TwoFactorRequired && !s.TwoFactorVerified {
		return false
	}
	return true
}

// PendingSecondFactor reports whether the password step has passed but an
// OTP code is still outstanding.
func (s *Session) PendingSecondFactor() bool {
	return s.PendingTwoFactorUser != ""
}

// HasRole reports whether the snapshot taken at login includes the slug.
func (s *Session) HasRole(slug string) bool {
	return slices.Contains(s.Roles, slug)
}

// Clear resets the session to anonymous. The id is left for the caller to
// regenerate, since id lifecycle belongs to the session store.
func (s *Session) Clear() {
	s.UserID = ""
	s.Email = ""
	s.Name = ""
	s.Roles = nil
	s.Locked = false
	s.LockedAt = nil
	s.LastActivity = time.Time{}
	s.TwoFactorRequired = false
	s.TwoFactorVerified = false
	s.PendingTwoFactorUser = ""
}
