package domain

import "time"

type Role struct {
	ID          string // UUIDv4
	Slug        string // machine name, e.g. "admin"
	Name        string // display name
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
