package repositories

import (
	"context"
	"fmt"

	"github.com/bkaraoglu/stajportal/internal/database"
	"github.com/bkaraoglu/stajportal/internal/models"
)

// PrincipalRepository reads and writes the PIN-security view of
// teachers and companies. The entity type discriminant selects the
// table; both tables carry the same lockout columns.
type PrincipalRepository struct {
	db *database.DB
}

// NewPrincipalRepository creates a new PrincipalRepository
func NewPrincipalRepository(db *database.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

func tableFor(entityType models.EntityType) (string, error) {
	switch entityType {
	case models.EntityTypeTeacher:
		return "teachers", nil
	case models.EntityTypeCompany:
		return "companies", nil
	default:
		return "", models.ErrInvalidEntityType
	}
}

// GetPrincipal loads the credential and lockout fields for a principal
func (r *PrincipalRepository) GetPrincipal(ctx context.Context, entityType models.EntityType, entityID string) (*models.Principal, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, pin_hash, is_locked, lock_start_time, failed_attempts, last_failed_attempt
		FROM %s WHERE id = $1
	`, table)

	p := &models.Principal{Type: entityType}
	err = r.db.Pool.QueryRow(ctx, query, entityID).Scan(
		&p.ID,
		&p.PinHash,
		&p.Lockout.IsLocked,
		&p.Lockout.LockStartTime,
		&p.Lockout.FailedAttempts,
		&p.Lockout.LastFailedAttempt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return p, nil
}

// GetLockout loads only the lockout fields for a principal
func (r *PrincipalRepository) GetLockout(ctx context.Context, entityType models.EntityType, entityID string) (models.LockoutState, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return models.LockoutState{}, err
	}

	query := fmt.Sprintf(`
		SELECT is_locked, lock_start_time, failed_attempts, last_failed_attempt
		FROM %s WHERE id = $1
	`, table)

	var state models.LockoutState
	err = r.db.Pool.QueryRow(ctx, query, entityID).Scan(
		&state.IsLocked,
		&state.LockStartTime,
		&state.FailedAttempts,
		&state.LastFailedAttempt,
	)
	if err != nil {
		return models.LockoutState{}, database.MapPostgresError(err)
	}

	return state, nil
}

// SaveLockout writes the lockout fields for a principal
func (r *PrincipalRepository) SaveLockout(ctx context.Context, entityType models.EntityType, entityID string, state models.LockoutState) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET is_locked = $2, lock_start_time = $3, failed_attempts = $4, last_failed_attempt = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, table)

	tag, err := r.db.Pool.Exec(ctx, query, entityID,
		state.IsLocked,
		state.LockStartTime,
		state.FailedAttempts,
		state.LastFailedAttempt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
