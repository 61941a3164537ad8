package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bkaraoglu/stajportal/internal/models"
)

// Roles carried in session tokens
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleCompany = "company"
)

// SessionClaims are the claims carried by a portal session token
type SessionClaims struct {
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 session tokens. A token is
// issued only after a successful PIN check.
type TokenManager struct {
	secret string
	expiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{secret: secret, expiry: expiry}
}

// GenerateSessionToken creates a session token for a principal that
// passed the PIN check
func (tm *TokenManager) GenerateSessionToken(entityType models.EntityType, entityID string) (string, error) {
	role := RoleTeacher
	if entityType == models.EntityTypeCompany {
		role = RoleCompany
	}
	return tm.generate(string(entityType), entityID, role)
}

// GenerateAdminToken creates an admin session token
func (tm *TokenManager) GenerateAdminToken(adminID string) (string, error) {
	return tm.generate("", adminID, RoleAdmin)
}

func (tm *TokenManager) generate(entityType, entityID, role string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		EntityType: entityType,
		EntityID:   entityID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken parses and validates a session token
func (tm *TokenManager) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
