package repository

import (
	"context"
	"fmt"
	"time"

	"pokeguide-backend/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository stores refresh tokens. The token value is the primary key.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Store(ctx context.Context, rt *model.RefreshToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, rt.Token, rt.UserID, rt.ExpiresAt)
	if err != nil {
		return fmt.Errorf("repository.session.Store: %w", err)
	}
	return nil
}

// Consume deletes the token row and returns what it held. Exactly one of any
// number of concurrent callers gets the row; the others see ErrNotFound.
func (r *SessionRepository) Consume(ctx context.Context, token string) (*model.RefreshToken, error) {
	rt := &model.RefreshToken{}
	err := r.pool.QueryRow(ctx, `
		DELETE FROM refresh_tokens WHERE token = $1
		RETURNING token, user_id, expires_at, created_at
	`, token).Scan(&rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		return nil, notFound("repository.session.Consume", err)
	}
	return rt, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) CountActive(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM refresh_tokens WHERE expires_at > $1`, now).Scan(&count)
	return count, err
}
