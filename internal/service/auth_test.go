package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
	"github.com/valadez/empenos-api/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (*service.AuthService, *mockAuthStore, *mockTenantStore) {
	t.Helper()

	tenants := newMockTenantStore(&domain.Tenant{
		ID:     "t1",
		Slug:   "casa-lupita",
		Name:   "Casa Lupita",
		Plan:   "basic",
		Status: "active",
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	auth := newMockAuthStore()
	auth.operators["op1"] = &domain.Operator{
		ID:       "op1",
		TenantID: "t1",
		BranchID: "b1",
		Username: "lupe",
		FullName: "Lupe Valdez",
		Role:     "admin",
		Status:   "active",
	}
	auth.credentials["op1"] = &domain.Credential{
		OperatorID:   "op1",
		TenantID:     "t1",
		PasswordHash: string(hash),
	}

	svc := service.NewAuthService(auth, tenants, "test-secret", 15*time.Minute, 24*time.Hour, zap.NewNop())
	return svc, auth, tenants
}

func TestLogin_Success(t *testing.T) {
	svc, auth, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "lupe",
		Password:   "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if resp.OperatorID != "op1" || resp.TenantID != "t1" || resp.Role != "admin" {
		t.Errorf("unexpected identity in response: %+v", resp)
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn = %d, want %d", resp.ExpiresIn, 900)
	}
	if len(auth.refreshTokens) != 1 {
		t.Errorf("expected 1 stored refresh token, got %d", len(auth.refreshTokens))
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Sub != "op1" || claims.TenantID != "t1" || claims.BranchID != "b1" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestLogin_WrongPasswordIsGeneric(t *testing.T) {
	svc, auth, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "lupe",
		Password:   "not-the-password",
	})
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !strings.Contains(unauth.Message, "credenciales inválidas") {
		t.Errorf("message leaks detail: %q", unauth.Message)
	}
	if auth.credentials["op1"].FailedAttempts != 1 {
		t.Errorf("FailedAttempts = %d, want 1", auth.credentials["op1"].FailedAttempts)
	}
}

func TestLogin_UnknownUserIsGeneric(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "nadie",
		Password:   "whatever",
	})
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if unauth.Message != "credenciales inválidas" {
		t.Errorf("message = %q, want the same generic text as a bad password", unauth.Message)
	}
}

func TestLogin_SuspendedTenant(t *testing.T) {
	svc, _, tenants := newAuthFixture(t)
	tenants.tenants["t1"].Status = "suspended"

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "lupe",
		Password:   "s3cret-pass",
	})
	var suspended *domain.ErrTenantSuspended
	if !errors.As(err, &suspended) {
		t.Fatalf("expected ErrTenantSuspended, got %v", err)
	}
}

func TestLogin_LockoutAfterMaxAttempts(t *testing.T) {
	svc, auth, _ := newAuthFixture(t)

	req := &domain.LoginRequest{TenantSlug: "casa-lupita", Username: "lupe", Password: "wrong"}
	for i := 0; i < 5; i++ {
		if _, err := svc.Login(context.Background(), req); err == nil {
			t.Fatalf("attempt %d: expected failure", i+1)
		}
	}

	updates := auth.credUpdates["op1"]
	if len(updates) != 5 {
		t.Fatalf("expected 5 credential updates, got %d", len(updates))
	}
	if _, ok := updates[4]["locked_until"]; !ok {
		t.Error("fifth failed attempt should set locked_until")
	}

	// Simulate the lock the store would now report.
	lockedUntil := time.Now().Add(30 * time.Minute)
	auth.credentials["op1"].LockedUntil = &lockedUntil

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "lupe",
		Password:   "s3cret-pass",
	})
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized while locked, got %v", err)
	}
	if !strings.Contains(unauth.Message, "bloqueada") {
		t.Errorf("message = %q, want lockout notice", unauth.Message)
	}
}

func TestLogin_SuccessResetsFailedAttempts(t *testing.T) {
	svc, auth, _ := newAuthFixture(t)
	auth.credentials["op1"].FailedAttempts = 3

	if _, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "lupe",
		Password:   "s3cret-pass",
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if auth.credentials["op1"].FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d, want 0 after success", auth.credentials["op1"].FailedAttempts)
	}
}

func TestLogin_InactiveOperator(t *testing.T) {
	svc, auth, _ := newAuthFixture(t)
	auth.operators["op1"].Status = "disabled"

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "lupe",
		Password:   "s3cret-pass",
	})
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, auth, _ := newAuthFixture(t)

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "lupe",
		Password:   "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh must rotate the token")
	}
	if len(auth.refreshTokens) != 1 {
		t.Errorf("expected old token revoked, %d tokens remain", len(auth.refreshTokens))
	}

	// The spent token is dead.
	if _, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken}); err == nil {
		t.Error("reusing a rotated refresh token should fail")
	}
}

func TestRefresh_ExpiredToken(t *testing.T) {
	svc, auth, _ := newAuthFixture(t)

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "lupe",
		Password:   "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	for _, tok := range auth.refreshTokens {
		tok.ExpiresAt = time.Now().Add(-time.Hour)
	}

	_, err = svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(auth.refreshTokens) != 0 {
		t.Error("expired token should be revoked on use")
	}
}

func TestLogout_RevokesAllTokens(t *testing.T) {
	svc, auth, _ := newAuthFixture(t)

	if _, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "lupe",
		Password:   "s3cret-pass",
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(context.Background(), "op1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(auth.refreshTokens) != 0 {
		t.Errorf("expected all tokens revoked, %d remain", len(auth.refreshTokens))
	}
	if len(auth.revokedAll) != 1 || auth.revokedAll[0] != "op1" {
		t.Errorf("revokedAll = %v, want [op1]", auth.revokedAll)
	}
}

func TestChangePassword_Success(t *testing.T) {
	svc, auth, _ := newAuthFixture(t)
	oldHash := auth.credentials["op1"].PasswordHash

	err := svc.ChangePassword(context.Background(), "op1", &domain.ChangePasswordRequest{
		CurrentPassword: "s3cret-pass",
		NewPassword:     "nueva-clave-9",
	})
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if auth.credentials["op1"].PasswordHash == oldHash {
		t.Error("password hash unchanged")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(auth.credentials["op1"].PasswordHash), []byte("nueva-clave-9")); err != nil {
		t.Errorf("new hash does not match the new password: %v", err)
	}
	if len(auth.revokedAll) != 1 {
		t.Error("changing the password should revoke outstanding refresh tokens")
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), "op1", &domain.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "nueva-clave-9",
	})
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestChangePassword_TooShort(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), "op1", &domain.ChangePasswordRequest{
		CurrentPassword: "s3cret-pass",
		NewPassword:     "corta",
	})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if validation.Field != "newPassword" {
		t.Errorf("Field = %q, want newPassword", validation.Field)
	}
}

func TestValidateAccessToken_RejectsInvalid(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	if _, err := svc.ValidateAccessToken("not-a-jwt"); err == nil {
		t.Error("garbage token should be rejected")
	}

	other := service.NewAuthService(newMockAuthStore(), newMockTenantStore(), "other-secret", time.Minute, time.Hour, zap.NewNop())
	login := mustLogin(t, svc)
	if _, err := other.ValidateAccessToken(login.AccessToken); err == nil {
		t.Error("token signed with a different secret should be rejected")
	}
}

func mustLogin(t *testing.T, svc *service.AuthService) *domain.LoginResponse {
	t.Helper()
	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		TenantSlug: "casa-lupita",
		Username:   "lupe",
		Password:   "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return resp
}
