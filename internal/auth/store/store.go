package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. We can change having the sub-repos as methods later but we do it
// now so we can have more control and actively stop people from accidently
// doing transactions within transactions.
type Store interface {
	Users() Users
	Roles() Roles
	ResetTokens() ResetTokens
	LoginAttempts() LoginAttempts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., user
	// creation with role assignment). The caller MUST call Commit() or
	// Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by normalized (lowercase) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user and assigns the given roles (id is
	// provided by the app via UUID). Run inside WithTx when the role
	// assignment must be atomic with the insert.
	CreateUser(ctx context.Context, u domain.User, roleIDs []string) error

	// UpdateUser applies the non-nil fields and, when roleIDs is non-nil,
	// replaces the full role assignment set.
	UpdateUser(ctx context.Context, userID string, upd domain.UserUpdate, roleIDs []string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetTwoFactor persists the 2FA state. A nil secret clears it; enabled
	// implies secret must be non-nil.
	SetTwoFactor(ctx context.Context, userID string, enabled bool, secret *string) error

	// IncrementFailedAttempts bumps the counter and, when the new value
	// reaches max, sets locked_until in the same statement.
	IncrementFailedAttempts(ctx context.Context, userID string, max int, lockedUntil time.Time) error

	// ResetFailedAttempts zeroes the counter and clears locked_until.
	ResetFailedAttempts(ctx context.Context, userID string) error

	// RecordLogin stamps last_login_at.
	RecordLogin(ctx context.Context, userID string, at time.Time) error

	// RoleIDs returns the ids of the roles assigned to a user.
	RoleIDs(ctx context.Context, userID string) ([]string, error)

	// RoleSlugs returns the slugs of the roles assigned to a user.
	RoleSlugs(ctx context.Context, userID string) ([]string, error)

	// ListUsers returns a page of users, optionally filtered by a search
	// term matched against email and name, ordered by creation date.
	ListUsers(ctx context.Context, search string, limit, offset int) ([]domain.User, error)

	// DeleteUser cascades to role assignments and reset tokens (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// CountUsers returns the total number of users.
	CountUsers(ctx context.Context) (int, error)
}

type Roles interface {
	// GetRoleByID fetches a role by its ID.
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)

	// GetRoleBySlug fetches a role by its machine name (for bootstrap and
	// registration defaults).
	GetRoleBySlug(ctx context.Context, slug string) (domain.Role, error)

	// ListRoles returns all roles in the system.
	ListRoles(ctx context.Context) ([]domain.Role, error)

	// CreateRole inserts a new role (id is UUID).
	CreateRole(ctx context.Context, r domain.Role) error

	// UpdateRole applies the non-nil fields and bumps updated_at.
	UpdateRole(ctx context.Context, roleID string, upd domain.RoleUpdate) error

	// DeleteRole removes a role and its user assignments.
	DeleteRole(ctx context.Context, roleID string) error

	// CountRoles returns the total number of roles.
	CountRoles(ctx context.Context) (int, error)
}

type ResetTokens interface {
	// CreateResetToken writes a new token record (token_hash is argon2 of
	// the opaque reset token).
	CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error

	// ListValidResetTokens returns all tokens whose expiry is after now.
	// Hashes are salted, so consumption verifies each candidate in turn
	// rather than looking one up by value.
	ListValidResetTokens(ctx context.Context, now time.Time) ([]domain.PasswordResetToken, error)

	// PurgeUserResetTokens removes every token for a user, consumed or not.
	PurgeUserResetTokens(ctx context.Context, userID string) error
}

type LoginAttempts interface {
	// LogAttempt records one login outcome (append-only).
	LogAttempt(ctx context.Context, a domain.LoginAttempt) error

	// ListRecentAttempts returns the newest attempts for the audit view.
	ListRecentAttempts(ctx context.Context, limit int) ([]domain.LoginAttempt, error)

	// CountRecentFailures counts failed attempts for a user since a cutoff.
	CountRecentFailures(ctx context.Context, userID string, since time.Time) (int, error)

	// CountAttempts returns the total number of recorded attempts.
	CountAttempts(ctx context.Context) (int, error)
}
