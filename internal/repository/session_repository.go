package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository defines the interface for user session data access.
// Sessions back refresh tokens; a soft-deleted session can no longer be
// used to mint access tokens.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	FindActive(ctx context.Context, id, userID, refreshToken string) (*domain.UserSession, error)
	SoftDelete(ctx context.Context, id string) error
}

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new instance of SessionRepository
func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new session into the database using parameterized queries
func (r *sessionRepository) Create(ctx context.Context, session *domain.UserSession) error {
	query := `
		INSERT INTO user_sessions (id, user_id, refresh_token, expires_at, deleted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.RefreshToken,
		session.ExpiresAt,
		session.Deleted,
		session.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// FindActive retrieves a live session matching the id, user and token.
// Soft-deleted and expired sessions are not returned.
func (r *sessionRepository) FindActive(ctx context.Context, id, userID, refreshToken string) (*domain.UserSession, error) {
	query := `
		SELECT id, user_id, refresh_token, expires_at, deleted, deleted_at, created_at
		FROM user_sessions
		WHERE id = $1 AND user_id = $2 AND refresh_token = $3
		  AND deleted = FALSE AND expires_at > $4
	`

	session := &domain.UserSession{}
	err := r.db.QueryRowContext(ctx, query, id, userID, refreshToken, time.Now()).Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshToken,
		&session.ExpiresAt,
		&session.Deleted,
		&session.DeletedAt,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// SoftDelete marks a session as deleted without removing the row
func (r *sessionRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE user_sessions
		SET deleted = TRUE, deleted_at = $2
		WHERE id = $1 AND deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}
