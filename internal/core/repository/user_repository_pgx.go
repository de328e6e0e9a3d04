package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/chat-service/internal/core/domain"
)

// PgxUserRepository implements domain.UserRepository using pgxpool.
type PgxUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PgxUserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PgxUserRepository {
	return &PgxUserRepository{pool: pool}
}

// GetByEmail returns the user matching the given email.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByEmail(ctx context.Context, email string) (*domain.UserRow, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`

	var row domain.UserRow
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&row.ID, &row.Username, &row.Email, &row.PasswordHash, &row.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// GetByID returns the user with the given id.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByID(ctx context.Context, id string) (*domain.UserRow, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`

	var row domain.UserRow
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.Username, &row.Email, &row.PasswordHash, &row.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// ExistsByUsernameOrEmail returns true when a user with the given
// username or email already exists.
func (r *PgxUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, username, email).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// Create inserts a new user with the given id and hashed password.
func (r *PgxUserRepository) Create(ctx context.Context, id, username, email, passwordHash string) error {
	query := `INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, id, username, email, passwordHash)
	return err
}
