package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/domain"
)

var ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

// IdempotencyRepository defines the interface for idempotency key data
// access. Keys are scoped per user: the same client key presented by
// two different users names two independent records. FindByKey only
// returns unexpired records, so a key whose TTL has lapsed behaves as
// if it was never used even before the sweeper removes the row.
type IdempotencyRepository interface {
	Create(ctx context.Context, record *domain.IdempotencyKey) error
	FindByKey(ctx context.Context, key, userID string) (*domain.IdempotencyKey, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type idempotencyRepository struct {
	db *sql.DB
}

// NewIdempotencyRepository creates a new instance of IdempotencyRepository
func NewIdempotencyRepository(db *sql.DB) IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

// Create inserts a new idempotency record using parameterized queries
func (r *idempotencyRepository) Create(ctx context.Context, record *domain.IdempotencyKey) error {
	query := `
		INSERT INTO idempotency_keys (id, key, user_id, product_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.Key,
		record.UserID,
		record.ProductID,
		record.ExpiresAt,
		record.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create idempotency key: %w", err)
	}

	return nil
}

// FindByKey retrieves the given user's unexpired record for the key
func (r *idempotencyRepository) FindByKey(ctx context.Context, key, userID string) (*domain.IdempotencyKey, error) {
	query := `
		SELECT id, key, user_id, product_id, expires_at, created_at
		FROM idempotency_keys
		WHERE key = $1 AND user_id = $2 AND expires_at > $3
	`

	record := &domain.IdempotencyKey{}
	err := r.db.QueryRowContext(ctx, query, key, userID, time.Now()).Scan(
		&record.ID,
		&record.Key,
		&record.UserID,
		&record.ProductID,
		&record.ExpiresAt,
		&record.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdempotencyKeyNotFound
		}
		return nil, fmt.Errorf("failed to find idempotency key: %w", err)
	}

	return record, nil
}

// DeleteExpired removes all records past their expiry and returns the
// number of rows deleted
func (r *idempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE expires_at <= $1`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency keys: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
