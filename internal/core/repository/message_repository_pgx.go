package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/chat-service/internal/core/domain"
)

// historyPayload is the JSONB document stored per message row. The layout
// (a type tag plus content) matches what the frontend's stream handling
// expects back from the history endpoint.
type historyPayload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// PgxMessageRepository implements domain.MessageRepository using pgxpool.
// The chat_history table is append-only; this type exposes no update or
// delete operation.
type PgxMessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new PgxMessageRepository.
func NewMessageRepository(pool *pgxpool.Pool) *PgxMessageRepository {
	return &PgxMessageRepository{pool: pool}
}

// AppendHuman appends a human turn to the session history.
func (r *PgxMessageRepository) AppendHuman(ctx context.Context, sessionID, content string) error {
	return r.append(ctx, sessionID, domain.RoleHuman, content)
}

// AppendAI appends an assistant turn to the session history.
func (r *PgxMessageRepository) AppendAI(ctx context.Context, sessionID, content string) error {
	return r.append(ctx, sessionID, domain.RoleAI, content)
}

func (r *PgxMessageRepository) append(ctx context.Context, sessionID, role, content string) error {
	payload, err := json.Marshal(historyPayload{Type: role, Content: content})
	if err != nil {
		return fmt.Errorf("marshal message payload: %w", err)
	}

	query := `INSERT INTO chat_history (session_id, message) VALUES ($1, $2)`
	_, err = r.pool.Exec(ctx, query, sessionID, payload)
	return err
}

// ListBySession returns the full history in creation order. The id column
// breaks ties between rows created within the same timestamp tick.
func (r *PgxMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.MessageRow, error) {
	query := `SELECT id, session_id, message, created_at FROM chat_history WHERE session_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.MessageRow{}
	for rows.Next() {
		var (
			row     domain.MessageRow
			rawJSON []byte
		)
		if err := rows.Scan(&row.ID, &row.SessionID, &rawJSON, &row.CreatedAt); err != nil {
			return nil, err
		}

		var payload historyPayload
		if err := json.Unmarshal(rawJSON, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal message %d: %w", row.ID, err)
		}
		row.Role = payload.Type
		row.Content = payload.Content

		messages = append(messages, row)
	}

	return messages, rows.Err()
}
