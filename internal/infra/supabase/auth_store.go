package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
)

// ============================================================
// Authentication: operators, credentials, refresh tokens
// ============================================================

func (c *Client) GetOperatorByUsername(ctx context.Context, tenantID, username string) (*domain.Operator, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetOperatorByUsername")
	defer span.End()

	path := fmt.Sprintf("operators?tenant_id=eq.%s&username=eq.%s&limit=1", tenantID, username)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/operators", Err: err}
	}

	rows, err := decodeRows[domain.Operator](body, "operator")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "operator", ID: username}
	}
	return &rows[0], nil
}

func (c *Client) GetOperatorByID(ctx context.Context, tenantID, operatorID string) (*domain.Operator, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetOperatorByID")
	defer span.End()

	path := fmt.Sprintf("operators?tenant_id=eq.%s&id=eq.%s&limit=1", tenantID, operatorID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/operators", Err: err}
	}

	rows, err := decodeRows[domain.Operator](body, "operator")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "operator", ID: operatorID}
	}
	return &rows[0], nil
}

func (c *Client) GetCredentials(ctx context.Context, operatorID string) (*domain.Credential, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCredentials")
	defer span.End()

	path := fmt.Sprintf("credentials?operator_id=eq.%s&limit=1", operatorID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/credentials", Err: err}
	}

	rows, err := decodeRows[domain.Credential](body, "credentials")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: operatorID}
	}
	return &rows[0], nil
}

func (c *Client) UpdateCredentials(ctx context.Context, operatorID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCredentials")
	defer span.End()

	path := fmt.Sprintf("credentials?operator_id=eq.%s", operatorID)
	if err := c.patch(ctx, path, updates); err != nil {
		return &domain.ErrExternalService{Service: "supabase/credentials", Err: err}
	}
	return nil
}

func (c *Client) StoreRefreshToken(ctx context.Context, operatorID, tenantID, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.StoreRefreshToken")
	defer span.End()

	_, err := c.post(ctx, "refresh_tokens", map[string]any{
		"token_hash":  tokenHash,
		"operator_id": operatorID,
		"tenant_id":   tenantID,
		"expires_at":  expiresAt.Format(time.RFC3339),
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/refresh_tokens", Err: err}
	}
	return nil
}

func (c *Client) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRefreshToken")
	defer span.End()

	path := fmt.Sprintf("refresh_tokens?token_hash=eq.%s&limit=1", tokenHash)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/refresh_tokens", Err: err}
	}

	rows, err := decodeRows[domain.RefreshToken](body, "refresh token")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "refresh token", ID: "token"}
	}
	return &rows[0], nil
}

func (c *Client) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeRefreshToken")
	defer span.End()

	path := fmt.Sprintf("refresh_tokens?token_hash=eq.%s", tokenHash)
	if err := c.del(ctx, path); err != nil {
		return &domain.ErrExternalService{Service: "supabase/refresh_tokens", Err: err}
	}
	return nil
}

func (c *Client) RevokeAllRefreshTokens(ctx context.Context, operatorID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeAllRefreshTokens")
	defer span.End()

	path := fmt.Sprintf("refresh_tokens?operator_id=eq.%s", operatorID)
	if err := c.del(ctx, path); err != nil {
		return &domain.ErrExternalService{Service: "supabase/refresh_tokens", Err: err}
	}
	return nil
}
