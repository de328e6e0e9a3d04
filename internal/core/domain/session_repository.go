package domain

import (
	"context"
	"time"
)

// SessionRow represents a chat session owned by a user. The title is seeded
// from the first prompt of the conversation.
type SessionRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRepository defines the data-access contract for session operations.
// Implementations live in internal/core/repository (Core layer).
type SessionRepository interface {
	// Ensure creates the session if it does not exist yet. It must be
	// atomic: two concurrent calls for the same id result in exactly one
	// row, and a lost insert race is treated as success.
	Ensure(ctx context.Context, id, userID, title string) error

	// ListByUser returns all sessions owned by the user, newest first.
	// Returns an empty slice, not an error, when the user has none.
	ListByUser(ctx context.Context, userID string) ([]SessionRow, error)

	// Exists reports whether a session with the given id exists.
	Exists(ctx context.Context, id string) (bool, error)
}
