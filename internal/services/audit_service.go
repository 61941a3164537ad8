package services

import (
	"context"
	"log/slog"

	"github.com/bkaraoglu/stajportal/internal/models"
	"github.com/bkaraoglu/stajportal/pkg/sanitize"
)

// SecurityEventSink persists security events when audit persistence is
// enabled
type SecurityEventSink interface {
	Create(ctx context.Context, event *models.SecurityEvent) error
}

// AuditService emits security audit events with a dual-write pattern:
// always a structured slog line, and for non-INFO severities optionally
// a durable security_events row. Details are sanitized before emission.
//
// LogEvent never returns or propagates an error: audit logging must not
// be able to break the operation it is observing.
type AuditService struct {
	sink    SecurityEventSink
	logger  *slog.Logger
	persist bool
}

// NewAuditService creates a new AuditService. The sink may be nil when
// persistence is disabled.
func NewAuditService(sink SecurityEventSink, persist bool, logger *slog.Logger) *AuditService {
	return &AuditService{
		sink:    sink,
		logger:  logger,
		persist: persist && sink != nil,
	}
}

// LogEvent records a security-relevant event at the given severity.
// A zero severity defaults to INFO.
func (s *AuditService) LogEvent(ctx context.Context, userID, action string, details map[string]any, severity models.AuditSeverity) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("audit logging panicked",
				slog.String("action", action),
				slog.Any("panic", r))
		}
	}()

	if severity == "" {
		severity = models.SeverityInfo
	}

	clean := sanitize.Details(details)

	attrs := []slog.Attr{
		slog.String("audit", "security"),
		slog.String("severity", string(severity)),
		slog.String("user_id", userID),
		slog.String("action", action),
	}
	if clean != nil {
		attrs = append(attrs, slog.Any("details", clean))
	}

	s.logger.LogAttrs(ctx, levelFor(severity), "security_event", attrs...)

	if !s.persist || severity == models.SeverityInfo {
		return
	}

	event := &models.SecurityEvent{
		UserID:   userID,
		Action:   action,
		Severity: severity,
		Details:  models.EventDetails(clean),
	}
	if err := s.sink.Create(ctx, event); err != nil {
		s.logger.Error("failed to persist security event",
			slog.String("action", action),
			slog.Any("error", err))
	}
}

func levelFor(severity models.AuditSeverity) slog.Level {
	switch severity {
	case models.SeverityWarning:
		return slog.LevelWarn
	case models.SeverityError, models.SeverityCritical:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
