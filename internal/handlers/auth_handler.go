package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bkaraoglu/stajportal/internal/auth"
	"github.com/bkaraoglu/stajportal/internal/models"
	"github.com/bkaraoglu/stajportal/internal/ratelimit"
	pkgauth "github.com/bkaraoglu/stajportal/pkg/auth"
	pkghttp "github.com/bkaraoglu/stajportal/pkg/http"
)

// PinSecurityChecker is the part of the PIN security service the login
// handler needs
type PinSecurityChecker interface {
	CheckStatus(ctx context.Context, entityType models.EntityType, entityID string) (models.PinSecurityStatus, error)
	RecordAttempt(ctx context.Context, entityType models.EntityType, entityID string, successful bool, ipAddress, userAgent *string) (models.AttemptResult, error)
}

// PrincipalReader loads a principal's stored PIN hash
type PrincipalReader interface {
	GetPrincipal(ctx context.Context, entityType models.EntityType, entityID string) (*models.Principal, error)
}

// Auditor records security audit events
type Auditor interface {
	LogEvent(ctx context.Context, userID, action string, details map[string]any, severity models.AuditSeverity)
}

// AuthHandler handles PIN-based credential exchange for teachers and
// companies
type AuthHandler struct {
	security   PinSecurityChecker
	principals PrincipalReader
	limiter    *ratelimit.Limiter
	tokens     *auth.TokenManager
	audit      Auditor
	ipConfig   *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(security PinSecurityChecker, principals PrincipalReader, limiter *ratelimit.Limiter, tokens *auth.TokenManager, audit Auditor, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		security:   security,
		principals: principals,
		limiter:    limiter,
		tokens:     tokens,
		audit:      audit,
		ipConfig:   ipConfig,
	}
}

// PinLoginRequest is the credential exchange payload
type PinLoginRequest struct {
	EntityType string `json:"entity_type" validate:"required,oneof=teacher company"`
	EntityID   string `json:"entity_id" validate:"required"`
	Pin        string `json:"pin" validate:"required,len=6,numeric"`
}

// PinLoginResponse is returned on a successful PIN check
type PinLoginResponse struct {
	Token      string                   `json:"token"`
	EntityType string                   `json:"entity_type"`
	EntityID   string                   `json:"entity_id"`
	Status     models.PinSecurityStatus `json:"security_status"`
	Message    string                   `json:"message"`
}

// PinLogin handles POST /auth/pin-login: evaluator pre-check, PIN
// comparison, unconditional ledger write, and the lockout update that
// follows from the outcome.
func (h *AuthHandler) PinLogin(w http.ResponseWriter, r *http.Request) {
	var req PinLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Geçersiz istek gövdesi.")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	entityType, err := models.ParseEntityType(req.EntityType)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Geçersiz hesap türü.")
		return
	}

	ip := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.UserAgent()

	// Pre-empt a known lock before touching the ledger
	status, err := h.security.CheckStatus(r.Context(), entityType, req.EntityID)
	if err != nil {
		h.writeStatusError(w, err)
		return
	}
	if !status.CanAttempt {
		pkghttp.WriteError(w, http.StatusUnauthorized, "account_locked",
			"Hesabınız kilitli. Lütfen daha sonra tekrar deneyin.")
		return
	}

	principal, err := h.principals.GetPrincipal(r.Context(), entityType, req.EntityID)
	if err != nil {
		h.writeStatusError(w, err)
		return
	}

	successful := pkgauth.ComparePin(principal.PinHash, req.Pin) == nil

	if !successful {
		// Failed-attempt throttling per client IP, independent of the
		// entity lockout; never escalates to a lockout itself.
		if limited := h.limiter.CheckFailedAttempts(ip); !limited.IsValid {
			_, _ = h.security.RecordAttempt(r.Context(), entityType, req.EntityID, false, &ip, &userAgent)
			h.audit.LogEvent(r.Context(), req.EntityID, models.AuditActionRateLimited,
				map[string]any{"ip": ip, "operation": ratelimit.OpFailedAttempts}, models.SeverityWarning)
			pkghttp.WriteTooManyRequests(w, limited.Error)
			return
		}
	}

	result, err := h.security.RecordAttempt(r.Context(), entityType, req.EntityID, successful, &ip, &userAgent)
	if err != nil {
		h.writeStatusError(w, err)
		return
	}

	if !result.Success {
		severity := models.SeverityWarning
		if result.Status.IsLocked {
			severity = models.SeverityError
		}
		h.audit.LogEvent(r.Context(), req.EntityID, models.AuditActionPinFailed,
			map[string]any{"ip": ip, "remaining_attempts": result.Status.RemainingAttempts}, severity)

		pkghttp.WriteErrorWithDetails(w, http.StatusUnauthorized, "invalid_pin", result.Message, "")
		return
	}

	token, err := h.tokens.GenerateSessionToken(entityType, req.EntityID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Oturum oluşturulamadı.")
		return
	}

	h.audit.LogEvent(r.Context(), req.EntityID, models.AuditActionPinSuccess,
		map[string]any{"ip": ip}, models.SeverityInfo)

	pkghttp.WriteJSON(w, http.StatusOK, PinLoginResponse{
		Token:      token,
		EntityType: string(entityType),
		EntityID:   req.EntityID,
		Status:     result.Status,
		Message:    result.Message,
	})
}

// writeStatusError maps storage errors to HTTP responses. An unknown
// principal is a hard failure of the attempt, never "unlocked".
func (h *AuthHandler) writeStatusError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrNotFound) {
		pkghttp.WriteNotFound(w, "Hesap bulunamadı.")
		return
	}
	pkghttp.WriteInternalError(w, "İşlem gerçekleştirilemedi.")
}
