package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/chat-service/internal/core/domain"
)

// PgxSessionRepository implements domain.SessionRepository using pgxpool.
type PgxSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PgxSessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PgxSessionRepository {
	return &PgxSessionRepository{pool: pool}
}

// Ensure creates the session if it does not exist yet. ON CONFLICT DO
// NOTHING makes the create-if-absent atomic: concurrent first turns for the
// same new session id insert at most one row, and losing the race is not an
// error.
func (r *PgxSessionRepository) Ensure(ctx context.Context, id, userID, title string) error {
	query := `INSERT INTO sessions (id, user_id, title) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, id, userID, title)
	return err
}

// ListByUser returns all sessions owned by the user, newest first.
func (r *PgxSessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.SessionRow, error) {
	query := `SELECT id, user_id, title, created_at FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.SessionRow{}
	for rows.Next() {
		var row domain.SessionRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Title, &row.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, row)
	}

	return sessions, rows.Err()
}

// Exists reports whether a session with the given id exists.
func (r *PgxSessionRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
