package domain

import (
	"context"
	"time"
)

// UserRow represents a user record returned from the database.
// It includes the password hash so the Logic layer can verify credentials.
type UserRow struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only — never on SQL or pgx directly.
type UserRepository interface {
	// GetByEmail returns the user matching the given email.
	// Returns (nil, nil) when no user is found.
	GetByEmail(ctx context.Context, email string) (*UserRow, error)

	// GetByID returns the user with the given id.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id string) (*UserRow, error)

	// ExistsByUsernameOrEmail returns true when a user with the given
	// username or email already exists.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// Create inserts a new user with the given id and hashed password.
	Create(ctx context.Context, id, username, email, passwordHash string) error
}
