package domain

import (
	"context"
	"time"
)

// Message roles as stored in the history log.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// MessageRow is one turn entry in a session's append-only history.
type MessageRow struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"-"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"-"`
}

// MessageRepository defines the data-access contract for the per-session
// message log. The log is append-only: no update or delete operations exist.
type MessageRepository interface {
	// AppendHuman appends a human turn to the session history.
	AppendHuman(ctx context.Context, sessionID, content string) error

	// AppendAI appends an assistant turn to the session history.
	AppendAI(ctx context.Context, sessionID, content string) error

	// ListBySession returns the full history in creation order.
	// Returns an empty slice when the session has no messages.
	ListBySession(ctx context.Context, sessionID string) ([]MessageRow, error)
}
