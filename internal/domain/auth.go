package domain

import "time"

// ============================================================
// Authentication
// ============================================================

// Credential holds an operator's login secrets and lockout state.
type Credential struct {
	OperatorID     string     `json:"operator_id"`
	TenantID       string     `json:"tenant_id"`
	PasswordHash   string     `json:"password_hash"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// RefreshToken is a stored (hashed) refresh token.
type RefreshToken struct {
	TokenHash  string    `json:"token_hash"`
	OperatorID string    `json:"operator_id"`
	TenantID   string    `json:"tenant_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// LoginRequest authenticates an operator within a tenant.
type LoginRequest struct {
	TenantSlug string `json:"tenantSlug"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// LoginResponse carries the token pair.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	OperatorID   string `json:"operatorId"`
	OperatorName string `json:"operatorName"`
	TenantID     string `json:"tenantId"`
	Role         string `json:"role"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest updates the operator's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
