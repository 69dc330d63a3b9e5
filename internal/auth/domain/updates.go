package domain

// UserUpdate is a typed partial update used by the admin surface. Nil fields
// are left untouched.
type UserUpdate struct {
	Email        *string
	Name         *string
	PasswordHash *string
	Active       *bool
}

// RoleUpdate is a typed partial update for roles.
type RoleUpdate struct {
	Slug        *string
	Name        *string
	Description *string
}
