package models

import "time"

// EntityType discriminates the two kinds of principals that authenticate
// with a PIN: supervising teachers and partner companies.
type EntityType string

const (
	EntityTypeTeacher EntityType = "teacher"
	EntityTypeCompany EntityType = "company"
)

// ParseEntityType validates an entity type supplied by a caller.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityTypeTeacher:
		return EntityTypeTeacher, nil
	case EntityTypeCompany:
		return EntityTypeCompany, nil
	default:
		return "", ErrInvalidEntityType
	}
}

// LockoutState holds the brute-force protection fields embedded in a
// principal's row. Invariants: IsLocked implies LockStartTime is set;
// an unlocked state has a nil LockStartTime and a zero FailedAttempts.
type LockoutState struct {
	IsLocked          bool       `db:"is_locked"`
	LockStartTime     *time.Time `db:"lock_start_time"`
	FailedAttempts    int        `db:"failed_attempts"`
	LastFailedAttempt *time.Time `db:"last_failed_attempt"`
}

// Teacher is a supervising teacher assigned to internship students.
type Teacher struct {
	ID        string    `db:"id"`
	FullName  string    `db:"full_name"`
	Email     string    `db:"email"`
	PinHash   string    `db:"pin_hash"`
	Lockout   LockoutState
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Company is a partner company hosting interns.
type Company struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	ContactName string    `db:"contact_name"`
	Email       string    `db:"email"`
	PinHash     string    `db:"pin_hash"`
	Lockout     LockoutState
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Principal is the common view of a teacher or company used by the PIN
// security flow: identity, stored PIN hash, and lockout fields.
type Principal struct {
	Type    EntityType
	ID      string
	PinHash string
	Lockout LockoutState
}
