package models

import "time"

// PinAttempt represents a single PIN credential check in the attempt
// ledger. Rows are append-only: this subsystem never updates or deletes
// them, and exactly one row is written per credential check whether it
// succeeds or fails. Retention is handled by the background cleanup via
// ExpiresAt.
type PinAttempt struct {
	ID          string     `db:"id"`
	EntityType  EntityType `db:"entity_type"`
	EntityID    string     `db:"entity_id"`
	Success     bool       `db:"success"`
	AttemptedAt time.Time  `db:"attempted_at"`
	IPAddress   *string    `db:"ip_address"`
	UserAgent   *string    `db:"user_agent"`
	ExpiresAt   time.Time  `db:"expires_at"`
}

// PinSecurityStatus is the lockout status reported to callers by both
// the read-only evaluator and the read-write updater. IsLocked is
// expiry-aware: a stored lock whose window has elapsed reads as open.
type PinSecurityStatus struct {
	IsLocked          bool       `json:"is_locked"`
	RemainingAttempts int        `json:"remaining_attempts"`
	LockStartTime     *time.Time `json:"lock_start_time,omitempty"`
	LockEndTime       *time.Time `json:"lock_end_time,omitempty"`
	CanAttempt        bool       `json:"can_attempt"`
}

// AttemptResult is returned by the attempt recorder: the outcome of the
// credential check plus the resulting security status and a
// user-facing message.
type AttemptResult struct {
	Success bool              `json:"success"`
	Status  PinSecurityStatus `json:"security_status"`
	Message string            `json:"message"`
}
