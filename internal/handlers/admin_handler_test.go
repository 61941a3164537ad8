package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkaraoglu/stajportal/internal/handlers"
	"github.com/bkaraoglu/stajportal/internal/models"
)

// MockSecurityAdmin implements SecurityAdmin with scripted responses
type MockSecurityAdmin struct {
	status   models.PinSecurityStatus
	notFound bool
	unlocked []string
}

func (m *MockSecurityAdmin) CheckStatus(ctx context.Context, entityType models.EntityType, entityID string) (models.PinSecurityStatus, error) {
	if m.notFound {
		return models.PinSecurityStatus{}, models.ErrNotFound
	}
	return m.status, nil
}

func (m *MockSecurityAdmin) Unlock(ctx context.Context, entityType models.EntityType, entityID string) error {
	if m.notFound {
		return models.ErrNotFound
	}
	m.unlocked = append(m.unlocked, string(entityType)+":"+entityID)
	return nil
}

func newAdminRouter(security *MockSecurityAdmin, audit *MockAuditor) chi.Router {
	h := handlers.NewAdminHandler(security, audit)
	r := chi.NewRouter()
	r.Get("/admin/security/status/{entityType}/{entityId}", h.SecurityStatus)
	r.Post("/admin/security/unlock", h.Unlock)
	return r
}

func TestSecurityStatus(t *testing.T) {
	security := &MockSecurityAdmin{
		status: models.PinSecurityStatus{IsLocked: true, RemainingAttempts: 0},
	}
	router := newAdminRouter(security, &MockAuditor{})

	req := httptest.NewRequest(http.MethodGet, "/admin/security/status/teacher/teacher-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var status models.PinSecurityStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.IsLocked)
	assert.Equal(t, 0, status.RemainingAttempts)
}

func TestSecurityStatus_InvalidEntityType(t *testing.T) {
	router := newAdminRouter(&MockSecurityAdmin{}, &MockAuditor{})

	req := httptest.NewRequest(http.MethodGet, "/admin/security/status/student/x", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecurityStatus_NotFound(t *testing.T) {
	router := newAdminRouter(&MockSecurityAdmin{notFound: true}, &MockAuditor{})

	req := httptest.NewRequest(http.MethodGet, "/admin/security/status/teacher/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnlock(t *testing.T) {
	security := &MockSecurityAdmin{}
	audit := &MockAuditor{}
	router := newAdminRouter(security, audit)

	payload, _ := json.Marshal(handlers.UnlockRequest{EntityType: "company", EntityID: "company-1"})
	req := httptest.NewRequest(http.MethodPost, "/admin/security/unlock", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"company:company-1"}, security.unlocked)
	assert.Contains(t, audit.actions, models.AuditActionManualUnlock)
}

func TestUnlock_ValidationErrors(t *testing.T) {
	router := newAdminRouter(&MockSecurityAdmin{}, &MockAuditor{})

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: "{nope"},
		{name: "missing entity id", body: `{"entity_type":"teacher"}`},
		{name: "bad entity type", body: `{"entity_type":"student","entity_id":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/security/unlock", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUnlock_NotFound(t *testing.T) {
	router := newAdminRouter(&MockSecurityAdmin{notFound: true}, &MockAuditor{})

	payload, _ := json.Marshal(handlers.UnlockRequest{EntityType: "teacher", EntityID: "ghost"})
	req := httptest.NewRequest(http.MethodPost, "/admin/security/unlock", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
