package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditSeverity classifies security audit events.
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "INFO"
	SeverityWarning  AuditSeverity = "WARNING"
	SeverityError    AuditSeverity = "ERROR"
	SeverityCritical AuditSeverity = "CRITICAL"
)

// Well-known audit actions
const (
	AuditActionPinFailed      = "pin_attempt_failed"
	AuditActionPinSuccess     = "pin_attempt_success"
	AuditActionLockEngaged    = "lock_engaged"
	AuditActionManualUnlock   = "manual_unlock"
	AuditActionFileRejected   = "file_rejected"
	AuditActionBatchRejected  = "batch_rejected"
	AuditActionRateLimited    = "rate_limited"
	AuditActionAnalysisOK     = "analysis_accepted"
)

// SecurityEvent is a persisted security audit record.
type SecurityEvent struct {
	ID        uuid.UUID     `db:"id"`
	UserID    string        `db:"user_id"`
	Action    string        `db:"action"`
	Severity  AuditSeverity `db:"severity"`
	Details   EventDetails  `db:"details"`
	CreatedAt time.Time     `db:"created_at"`
}

// EventDetails holds sanitized context for a security event.
type EventDetails map[string]any

// Scan implements sql.Scanner for JSONB
func (d *EventDetails) Scan(value any) error {
	if value == nil {
		*d = make(EventDetails)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]any
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*d = EventDetails(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (d EventDetails) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}
