package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const getUserEmailSQL = `SELECT email FROM users WHERE id = $1`

// UserRepository reads the user projection kept for notifications.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// EmailForUser returns the email address on file for a user.
func (r *UserRepository) EmailForUser(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var email string
	err := r.pool.QueryRow(ctx, getUserEmailSQL, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("no email for user %q", userID)
		}
		return "", fmt.Errorf("querying user %q: %w", userID, err)
	}
	return email, nil
}
