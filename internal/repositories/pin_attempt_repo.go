package repositories

import (
	"context"
	"time"

	"github.com/bkaraoglu/stajportal/internal/database"
	"github.com/bkaraoglu/stajportal/internal/models"
	"github.com/jackc/pgx/v5"
)

// PinAttemptRepository handles database operations for the PIN attempt
// ledger. The ledger is append-only: rows are inserted once per
// credential check and only ever removed by retention cleanup.
type PinAttemptRepository struct {
	db *database.DB
}

// NewPinAttemptRepository creates a new PinAttemptRepository
func NewPinAttemptRepository(db *database.DB) *PinAttemptRepository {
	return &PinAttemptRepository{db: db}
}

// RecordAttempt appends a PIN attempt to the ledger
func (r *PinAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.PinAttempt) error {
	query := `
		INSERT INTO pin_attempts (entity_type, entity_id, success, attempted_at, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.EntityType,
		attempt.EntityID,
		attempt.Success,
		attempt.AttemptedAt,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.ExpiresAt,
	)

	return database.MapPostgresError(err)
}

// CountFailedSince returns the number of failed attempts for a
// principal with attempted_at inside [since, now]
func (r *PinAttemptRepository) CountFailedSince(ctx context.Context, entityType models.EntityType, entityID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM pin_attempts
		WHERE entity_type = $1 AND entity_id = $2 AND success = false AND attempted_at >= $3
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, entityType, entityID, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// LastFailureSince returns the timestamp of the most recent failed
// attempt inside the window, or nil when there is none
func (r *PinAttemptRepository) LastFailureSince(ctx context.Context, entityType models.EntityType, entityID string, since time.Time) (*time.Time, error) {
	query := `
		SELECT attempted_at FROM pin_attempts
		WHERE entity_type = $1 AND entity_id = $2 AND success = false AND attempted_at >= $3
		ORDER BY attempted_at DESC
		LIMIT 1
	`

	var failureTime time.Time
	err := r.db.Pool.QueryRow(ctx, query, entityType, entityID, since).Scan(&failureTime)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &failureTime, nil
}

// LastSuccessTime returns the timestamp of the most recent successful
// attempt, or nil when the principal has never succeeded
func (r *PinAttemptRepository) LastSuccessTime(ctx context.Context, entityType models.EntityType, entityID string) (*time.Time, error) {
	query := `
		SELECT attempted_at FROM pin_attempts
		WHERE entity_type = $1 AND entity_id = $2 AND success = true
		ORDER BY attempted_at DESC
		LIMIT 1
	`

	var successTime time.Time
	err := r.db.Pool.QueryRow(ctx, query, entityType, entityID).Scan(&successTime)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &successTime, nil
}

// DeleteExpired removes ledger rows past their retention deadline.
// Returns the number of rows removed.
func (r *PinAttemptRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM pin_attempts WHERE expires_at <= CURRENT_TIMESTAMP`
	tag, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
