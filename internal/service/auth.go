// Package service — AuthService handles operator authentication, JWT token
// management and password changes. Operators belong to a tenant; the tenant
// id travels in the token claims and scopes every store query downstream.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
	"github.com/valadez/empenos-api/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const (
	maxFailedAttempts = 5
	lockDuration      = 30 * time.Minute
	bcryptCost        = 12
)

// AuthService orchestrates authentication flows.
type AuthService struct {
	store      port.AuthStore
	tenants    port.TenantStore
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.AuthStore, tenants port.TenantStore, jwtSecret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:      store,
		tenants:    tenants,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.slug", req.TenantSlug))

	tenant, err := s.tenants.GetTenantBySlug(ctx, req.TenantSlug)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "credenciales inválidas"}
	}
	if tenant.Status == "suspended" {
		s.logger.Warn("login: suspended tenant",
			zap.String("tenant_id", tenant.ID),
			zap.String("slug", req.TenantSlug),
		)
		return nil, &domain.ErrTenantSuspended{TenantID: tenant.ID}
	}

	operator, err := s.store.GetOperatorByUsername(ctx, tenant.ID, req.Username)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "credenciales inválidas"}
	}
	if operator.Status != "active" {
		return nil, &domain.ErrUnauthorized{Message: "operador inactivo"}
	}

	cred, err := s.store.GetCredentials(ctx, operator.ID)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "credenciales inválidas"}
	}

	// Check lockout first so a locked account never burns bcrypt time.
	if cred.LockedUntil != nil && cred.LockedUntil.After(time.Now()) {
		remaining := time.Until(*cred.LockedUntil).Minutes()
		s.logger.Warn("login: account temporarily locked",
			zap.String("operator_id", operator.ID),
			zap.Float64("remaining_minutes", remaining),
		)
		return nil, &domain.ErrUnauthorized{
			Message: fmt.Sprintf("cuenta bloqueada temporalmente, intente en %.0f minutos", remaining),
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		newAttempts := cred.FailedAttempts + 1
		updates := map[string]any{"failed_attempts": newAttempts}
		if newAttempts >= maxFailedAttempts {
			lockedUntil := time.Now().Add(lockDuration)
			updates["locked_until"] = lockedUntil.Format(time.RFC3339)
			s.logger.Warn("login: account locked after max attempts",
				zap.String("operator_id", operator.ID),
				zap.Int("attempts", newAttempts),
				zap.Duration("lock_duration", lockDuration),
			)
		} else {
			s.logger.Warn("login: failed password attempt",
				zap.String("operator_id", operator.ID),
				zap.Int("attempts", newAttempts),
				zap.Int("max", maxFailedAttempts),
			)
		}
		_ = s.store.UpdateCredentials(ctx, operator.ID, updates)

		remaining := maxFailedAttempts - newAttempts
		if remaining <= 0 {
			return nil, &domain.ErrUnauthorized{
				Message: fmt.Sprintf("cuenta bloqueada por %d minutos tras %d intentos", int(lockDuration.Minutes()), maxFailedAttempts),
			}
		}
		return nil, &domain.ErrUnauthorized{
			Message: fmt.Sprintf("credenciales inválidas, %d intento(s) restante(s)", remaining),
		}
	}

	// Reset failed attempts on successful login.
	_ = s.store.UpdateCredentials(ctx, operator.ID, map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   time.Now().Format(time.RFC3339),
	})

	return s.issueTokens(ctx, operator)
}

// ============================================================
// Refresh — POST /v1/auth/refresh
// ============================================================

func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	tokenHash := hashToken(req.RefreshToken)

	stored, err := s.store.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "token de actualización inválido"}
	}

	if stored.ExpiresAt.Before(time.Now()) {
		s.logger.Warn("refresh: expired token used",
			zap.String("operator_id", stored.OperatorID),
		)
		_ = s.store.RevokeRefreshToken(ctx, tokenHash)
		return nil, &domain.ErrUnauthorized{Message: "token de actualización expirado"}
	}

	// Rotation: the old token dies with this use.
	_ = s.store.RevokeRefreshToken(ctx, tokenHash)

	operator, err := s.store.GetOperatorByID(ctx, stored.TenantID, stored.OperatorID)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "token de actualización inválido"}
	}
	if operator.Status != "active" {
		return nil, &domain.ErrUnauthorized{Message: "operador inactivo"}
	}

	return s.issueTokens(ctx, operator)
}

// ============================================================
// Logout — POST /v1/auth/logout
// ============================================================

func (s *AuthService) Logout(ctx context.Context, operatorID string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if err := s.store.RevokeAllRefreshTokens(ctx, operatorID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	s.logger.Info("operator logged out", zap.String("operator_id", operatorID))
	return nil
}

// ============================================================
// ChangePassword — PUT /v1/auth/password
// ============================================================

func (s *AuthService) ChangePassword(ctx context.Context, operatorID string, req *domain.ChangePasswordRequest) error {
	ctx, span := authTracer.Start(ctx, "AuthService.ChangePassword")
	defer span.End()

	cred, err := s.store.GetCredentials(ctx, operatorID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		s.logger.Warn("password change: wrong current password",
			zap.String("operator_id", operatorID),
		)
		return &domain.ErrUnauthorized{Message: "contraseña actual incorrecta"}
	}

	if len(req.NewPassword) < 8 {
		return &domain.ErrValidation{Field: "newPassword", Message: "must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdateCredentials(ctx, operatorID, map[string]any{
		"password_hash":   string(hash),
		"failed_attempts": 0,
		"locked_until":    nil,
	}); err != nil {
		return err
	}

	// Force re-login on other devices.
	_ = s.store.RevokeAllRefreshTokens(ctx, operatorID)

	s.logger.Info("password changed", zap.String("operator_id", operatorID))
	return nil
}

// ============================================================
// ValidateToken — used by middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub      string `json:"sub"`
	TenantID string `json:"tid"`
	BranchID string `json:"bid,omitempty"`
	Role     string `json:"role"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "token inválido o expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "token inválido"}
	}

	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "tipo de token inválido"}
	}

	return claims, nil
}

// ============================================================
// Internal helpers
// ============================================================

func (s *AuthService) issueTokens(ctx context.Context, operator *domain.Operator) (*domain.LoginResponse, error) {
	accessToken, err := s.signAccessToken(operator)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, refreshHash, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.store.StoreRefreshToken(ctx, operator.ID, operator.TenantID, refreshHash, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.Info("operator logged in",
		zap.String("operator_id", operator.ID),
		zap.String("tenant_id", operator.TenantID),
		zap.String("role", operator.Role),
	)

	return &domain.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		OperatorID:   operator.ID,
		OperatorName: operator.FullName,
		TenantID:     operator.TenantID,
		Role:         operator.Role,
	}, nil
}

func (s *AuthService) signAccessToken(operator *domain.Operator) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:      operator.ID,
		TenantID: operator.TenantID,
		BranchID: operator.BranchID,
		Role:     operator.Role,
		Type:     "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "empenos-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) generateRefreshToken() (raw string, hashed string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	hashed = hashToken(raw)
	return raw, hashed, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
