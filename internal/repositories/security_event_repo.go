package repositories

import (
	"context"

	"github.com/bkaraoglu/stajportal/internal/database"
	"github.com/bkaraoglu/stajportal/internal/models"
)

// SecurityEventRepository persists security audit events
type SecurityEventRepository struct {
	db *database.DB
}

// NewSecurityEventRepository creates a new SecurityEventRepository
func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

// Create inserts a security event row
func (r *SecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) error {
	query := `
		INSERT INTO security_events (user_id, action, severity, details)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		event.UserID,
		event.Action,
		event.Severity,
		event.Details,
	)

	return database.MapPostgresError(err)
}
