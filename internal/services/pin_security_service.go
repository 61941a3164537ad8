package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bkaraoglu/stajportal/internal/models"
)

// PinAttemptLedger defines the ledger operations the PIN security
// service needs. The ledger is the single source of truth for
// historical failure counting.
type PinAttemptLedger interface {
	RecordAttempt(ctx context.Context, attempt *models.PinAttempt) error
	CountFailedSince(ctx context.Context, entityType models.EntityType, entityID string, since time.Time) (int, error)
	LastFailureSince(ctx context.Context, entityType models.EntityType, entityID string, since time.Time) (*time.Time, error)
	LastSuccessTime(ctx context.Context, entityType models.EntityType, entityID string) (*time.Time, error)
}

// LockoutStore defines access to the lockout fields on a principal's row
type LockoutStore interface {
	GetLockout(ctx context.Context, entityType models.EntityType, entityID string) (models.LockoutState, error)
	SaveLockout(ctx context.Context, entityType models.EntityType, entityID string, state models.LockoutState) error
}

// LockoutNotifier is told when a lock is engaged so the internship
// coordinator can be informed out of band
type LockoutNotifier interface {
	NotifyLockEngaged(ctx context.Context, entityType models.EntityType, entityID string, lockEnd time.Time) error
}

// PinSecurityConfig holds the lockout state machine thresholds
type PinSecurityConfig struct {
	MaxAttempts      int
	LockDuration     time.Duration
	AttemptWindow    time.Duration
	AttemptRetention time.Duration
}

// User-facing messages (Turkish, matching the portal UI)
const (
	MsgPinSuccess = "Giriş başarılı."
	msgPinLocked  = "Çok fazla hatalı deneme. Hesabınız %d dakika süreyle kilitlendi."
	msgPinFailed  = "Hatalı PIN. Kalan deneme hakkı: %d"
)

// PinSecurityService implements the PIN brute-force protection state
// machine: the read-only status evaluator, the read-write status
// updater, the attempt recorder and the manual unlock.
//
// The updater's count-then-write sequence is serialized per principal
// with an in-process mutex; without it two concurrent failures could
// both read a sub-threshold count and neither engage the lock.
type PinSecurityService struct {
	ledger   PinAttemptLedger
	store    LockoutStore
	config   PinSecurityConfig
	notifier LockoutNotifier
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	entityLocks map[string]*sync.Mutex
}

// NewPinSecurityService creates a new PinSecurityService. The notifier
// may be nil when lockout notifications are disabled.
func NewPinSecurityService(ledger PinAttemptLedger, store LockoutStore, config PinSecurityConfig, notifier LockoutNotifier, logger *slog.Logger) *PinSecurityService {
	return &PinSecurityService{
		ledger:      ledger,
		store:       store,
		config:      config,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
		entityLocks: make(map[string]*sync.Mutex),
	}
}

// SetClock overrides the time source. Tests only.
func (s *PinSecurityService) SetClock(now func() time.Time) {
	s.now = now
}

// entityLock returns the per-principal mutex, creating it on first use.
// Entries are never evicted; the principal population is small and fixed.
func (s *PinSecurityService) entityLock(entityType models.EntityType, entityID string) *sync.Mutex {
	key := string(entityType) + ":" + entityID
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.entityLocks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.entityLocks[key] = l
	return l
}

// CheckStatus computes the current lockout status without mutating any
// state. A stored lock whose window has elapsed reads as unlocked even
// though the flag has not been cleared yet; clearing is the updater's job.
func (s *PinSecurityService) CheckStatus(ctx context.Context, entityType models.EntityType, entityID string) (models.PinSecurityStatus, error) {
	state, err := s.store.GetLockout(ctx, entityType, entityID)
	if err != nil {
		return models.PinSecurityStatus{}, err
	}

	now := s.now()
	windowStart, err := s.failureWindowStart(ctx, entityType, entityID, now)
	if err != nil {
		return models.PinSecurityStatus{}, err
	}
	recentFailures, err := s.ledger.CountFailedSince(ctx, entityType, entityID, windowStart)
	if err != nil {
		return models.PinSecurityStatus{}, err
	}

	return s.statusFrom(state, recentFailures, now), nil
}

// failureWindowStart returns the start of the failure-counting window:
// the attempt window, shortened to the most recent successful attempt.
// A correct PIN exonerates everything that came before it, so stale
// failures inside the window no longer count once a success follows.
func (s *PinSecurityService) failureWindowStart(ctx context.Context, entityType models.EntityType, entityID string, now time.Time) (time.Time, error) {
	since := now.Add(-s.config.AttemptWindow)
	lastSuccess, err := s.ledger.LastSuccessTime(ctx, entityType, entityID)
	if err != nil {
		return time.Time{}, err
	}
	if lastSuccess != nil && lastSuccess.After(since) {
		since = *lastSuccess
	}
	return since, nil
}

// UpdateStatus recomputes the lockout state from the ledger and writes
// back any transition: lazy expiry of a stale lock, lock engagement
// when the windowed failure count crosses the threshold, or a refresh
// of the informational counter.
func (s *PinSecurityService) UpdateStatus(ctx context.Context, entityType models.EntityType, entityID string) (models.PinSecurityStatus, error) {
	lock := s.entityLock(entityType, entityID)
	lock.Lock()
	defer lock.Unlock()

	return s.updateStatusLocked(ctx, entityType, entityID)
}

func (s *PinSecurityService) updateStatusLocked(ctx context.Context, entityType models.EntityType, entityID string) (models.PinSecurityStatus, error) {
	state, err := s.store.GetLockout(ctx, entityType, entityID)
	if err != nil {
		return models.PinSecurityStatus{}, err
	}

	now := s.now()

	// Lazy lock expiry: no timer, the stale lock is cleared on demand.
	if state.IsLocked && state.LockStartTime != nil && !now.Before(state.LockStartTime.Add(s.config.LockDuration)) {
		state = models.LockoutState{}
		if err := s.store.SaveLockout(ctx, entityType, entityID, state); err != nil {
			return models.PinSecurityStatus{}, err
		}
		s.logger.Info("expired pin lock cleared",
			slog.String("entity_type", string(entityType)),
			slog.String("entity_id", entityID))
	}

	windowStart, err := s.failureWindowStart(ctx, entityType, entityID, now)
	if err != nil {
		return models.PinSecurityStatus{}, err
	}
	recentFailures, err := s.ledger.CountFailedSince(ctx, entityType, entityID, windowStart)
	if err != nil {
		return models.PinSecurityStatus{}, err
	}

	switch {
	case !state.IsLocked && recentFailures >= s.config.MaxAttempts:
		// The only lock-engagement path. Duration runs from the moment
		// the threshold is crossed, not from the first failure.
		lockStart := now
		state = models.LockoutState{
			IsLocked:          true,
			LockStartTime:     &lockStart,
			FailedAttempts:    recentFailures,
			LastFailedAttempt: &lockStart,
		}
		if err := s.store.SaveLockout(ctx, entityType, entityID, state); err != nil {
			return models.PinSecurityStatus{}, err
		}

		lockEnd := lockStart.Add(s.config.LockDuration)
		s.logger.Warn("pin lock engaged",
			slog.String("entity_type", string(entityType)),
			slog.String("entity_id", entityID),
			slog.Int("recent_failures", recentFailures),
			slog.Time("lock_end", lockEnd))

		if s.notifier != nil {
			go s.notifyLockEngaged(entityType, entityID, lockEnd)
		}

	case !state.IsLocked:
		// Still unlocked: refresh the informational counter. The cached
		// value is never consulted for lock decisions.
		state.FailedAttempts = recentFailures
		if recentFailures > 0 {
			lastFailure, err := s.ledger.LastFailureSince(ctx, entityType, entityID, windowStart)
			if err != nil {
				return models.PinSecurityStatus{}, err
			}
			state.LastFailedAttempt = lastFailure
		} else {
			state.LastFailedAttempt = nil
		}
		if err := s.store.SaveLockout(ctx, entityType, entityID, state); err != nil {
			return models.PinSecurityStatus{}, err
		}
	}

	return s.statusFrom(state, recentFailures, now), nil
}

// RecordAttempt is the single entry point for real authentication
// attempts: the ledger append always happens first so the attempt just
// made is counted in the status returned from the same call.
func (s *PinSecurityService) RecordAttempt(ctx context.Context, entityType models.EntityType, entityID string, successful bool, ipAddress, userAgent *string) (models.AttemptResult, error) {
	now := s.now()
	attempt := &models.PinAttempt{
		EntityType:  entityType,
		EntityID:    entityID,
		Success:     successful,
		AttemptedAt: now,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		ExpiresAt:   now.Add(s.config.AttemptRetention),
	}
	if err := s.ledger.RecordAttempt(ctx, attempt); err != nil {
		return models.AttemptResult{}, err
	}

	if successful {
		// A single correct PIN fully exonerates the principal, even
		// mid-window with the counter one short of the threshold.
		if err := s.Unlock(ctx, entityType, entityID); err != nil {
			return models.AttemptResult{}, err
		}
		return models.AttemptResult{
			Success: true,
			Status: models.PinSecurityStatus{
				IsLocked:          false,
				RemainingAttempts: s.config.MaxAttempts,
				CanAttempt:        true,
			},
			Message: MsgPinSuccess,
		}, nil
	}

	status, err := s.UpdateStatus(ctx, entityType, entityID)
	if err != nil {
		return models.AttemptResult{}, err
	}

	var message string
	if status.IsLocked {
		message = fmt.Sprintf(msgPinLocked, int(s.config.LockDuration.Minutes()))
	} else {
		message = fmt.Sprintf(msgPinFailed, status.RemainingAttempts)
	}

	return models.AttemptResult{
		Success: false,
		Status:  status,
		Message: message,
	}, nil
}

// Unlock resets the lockout state to fully open regardless of the
// ledger contents. Used by the admin unlock action and by successful
// attempts. Idempotent.
func (s *PinSecurityService) Unlock(ctx context.Context, entityType models.EntityType, entityID string) error {
	lock := s.entityLock(entityType, entityID)
	lock.Lock()
	defer lock.Unlock()

	return s.store.SaveLockout(ctx, entityType, entityID, models.LockoutState{})
}

// statusFrom derives the reported status from a lockout state and the
// windowed failure count
func (s *PinSecurityService) statusFrom(state models.LockoutState, recentFailures int, now time.Time) models.PinSecurityStatus {
	status := models.PinSecurityStatus{
		RemainingAttempts: max(0, s.config.MaxAttempts-recentFailures),
	}

	if state.IsLocked && state.LockStartTime != nil {
		lockEnd := state.LockStartTime.Add(s.config.LockDuration)
		if now.Before(lockEnd) {
			status.IsLocked = true
			status.LockStartTime = state.LockStartTime
			status.LockEndTime = &lockEnd
		}
	}

	status.CanAttempt = !status.IsLocked
	return status
}

func (s *PinSecurityService) notifyLockEngaged(entityType models.EntityType, entityID string, lockEnd time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.notifier.NotifyLockEngaged(ctx, entityType, entityID, lockEnd); err != nil {
		s.logger.Error("failed to send lockout notification",
			slog.String("entity_type", string(entityType)),
			slog.String("entity_id", entityID),
			slog.Any("error", err))
	}
}
