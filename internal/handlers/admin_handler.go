package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bkaraoglu/stajportal/internal/auth"
	"github.com/bkaraoglu/stajportal/internal/models"
	pkghttp "github.com/bkaraoglu/stajportal/pkg/http"
)

// SecurityAdmin is the part of the PIN security service the admin
// endpoints need
type SecurityAdmin interface {
	CheckStatus(ctx context.Context, entityType models.EntityType, entityID string) (models.PinSecurityStatus, error)
	Unlock(ctx context.Context, entityType models.EntityType, entityID string) error
}

// AdminHandler exposes the coordinator's security operations
type AdminHandler struct {
	security SecurityAdmin
	audit    Auditor
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(security SecurityAdmin, audit Auditor) *AdminHandler {
	return &AdminHandler{security: security, audit: audit}
}

// SecurityStatus handles GET /admin/security/status/{entityType}/{entityId}
// using the read-only evaluator
func (h *AdminHandler) SecurityStatus(w http.ResponseWriter, r *http.Request) {
	entityType, err := models.ParseEntityType(chi.URLParam(r, "entityType"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Geçersiz hesap türü.")
		return
	}
	entityID := chi.URLParam(r, "entityId")

	status, err := h.security.CheckStatus(r.Context(), entityType, entityID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Hesap bulunamadı.")
			return
		}
		pkghttp.WriteInternalError(w, "Durum sorgulanamadı.")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// UnlockRequest identifies the principal to unlock
type UnlockRequest struct {
	EntityType string `json:"entity_type" validate:"required,oneof=teacher company"`
	EntityID   string `json:"entity_id" validate:"required"`
}

// Unlock handles POST /admin/security/unlock: an unconditional,
// idempotent reset of the principal's lockout state
func (h *AdminHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
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

	if err := h.security.Unlock(r.Context(), entityType, req.EntityID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Hesap bulunamadı.")
			return
		}
		pkghttp.WriteInternalError(w, "Kilit açılamadı.")
		return
	}

	admin := auth.ClaimsFromContext(r.Context())
	adminID := ""
	if admin != nil {
		adminID = admin.EntityID
	}
	h.audit.LogEvent(r.Context(), adminID, models.AuditActionManualUnlock,
		map[string]any{"entity_type": req.EntityType, "entity_id": req.EntityID}, models.SeverityWarning)

	w.WriteHeader(http.StatusNoContent)
}
