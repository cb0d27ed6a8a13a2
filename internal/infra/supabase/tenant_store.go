package supabase

import (
	"context"
	"fmt"

	"github.com/valadez/empenos-api/internal/domain"
)

// ============================================================
// Tenants, branches, operators (sysadmin provisioning)
// ============================================================

func (c *Client) CreateTenant(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTenant")
	defer span.End()

	body, err := c.post(ctx, "tenants", map[string]any{
		"id":     t.ID,
		"slug":   t.Slug,
		"name":   t.Name,
		"plan":   t.Plan,
		"status": t.Status,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/tenants", Err: err}
	}

	rows, err := decodeRows[domain.Tenant](body, "tenant")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return t, nil
	}
	return &rows[0], nil
}

func (c *Client) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTenant")
	defer span.End()

	path := fmt.Sprintf("tenants?id=eq.%s&limit=1", tenantID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/tenants", Err: err}
	}

	rows, err := decodeRows[domain.Tenant](body, "tenant")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
	}
	return &rows[0], nil
}

func (c *Client) GetTenantBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTenantBySlug")
	defer span.End()

	path := fmt.Sprintf("tenants?slug=eq.%s&limit=1", slug)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/tenants", Err: err}
	}

	rows, err := decodeRows[domain.Tenant](body, "tenant")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: slug}
	}
	return &rows[0], nil
}

func (c *Client) ListTenants(ctx context.Context, page, pageSize int) ([]domain.Tenant, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTenants")
	defer span.End()

	path := fmt.Sprintf("tenants?order=created_at.desc&%s", paginationRange(page, pageSize))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/tenants", Err: err}
	}
	return decodeRows[domain.Tenant](body, "tenants")
}

func (c *Client) UpdateTenantStatus(ctx context.Context, tenantID, status string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTenantStatus")
	defer span.End()

	path := fmt.Sprintf("tenants?id=eq.%s", tenantID)
	if err := c.patch(ctx, path, map[string]any{"status": status}); err != nil {
		return &domain.ErrExternalService{Service: "supabase/tenants", Err: err}
	}
	return nil
}

func (c *Client) CreateBranch(ctx context.Context, b *domain.Branch) (*domain.Branch, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateBranch")
	defer span.End()

	body, err := c.post(ctx, "branches", map[string]any{
		"id":        b.ID,
		"tenant_id": b.TenantID,
		"name":      b.Name,
		"address":   b.Address,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/branches", Err: err}
	}

	rows, err := decodeRows[domain.Branch](body, "branch")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return b, nil
	}
	return &rows[0], nil
}

// CreateOperator inserts the operator row and its credential row. PostgREST
// has no cross-table transaction here; the credential insert failing leaves
// an operator without credentials, which login treats as not found.
func (c *Client) CreateOperator(ctx context.Context, op *domain.Operator, passwordHash string) (*domain.Operator, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateOperator")
	defer span.End()

	body, err := c.post(ctx, "operators", map[string]any{
		"id":        op.ID,
		"tenant_id": op.TenantID,
		"branch_id": op.BranchID,
		"username":  op.Username,
		"full_name": op.FullName,
		"role":      op.Role,
		"status":    op.Status,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/operators", Err: err}
	}

	rows, err := decodeRows[domain.Operator](body, "operator")
	if err != nil {
		return nil, err
	}
	created := op
	if len(rows) > 0 {
		created = &rows[0]
	}

	_, err = c.post(ctx, "credentials", map[string]any{
		"operator_id":     created.ID,
		"tenant_id":       created.TenantID,
		"password_hash":   passwordHash,
		"failed_attempts": 0,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/credentials", Err: err}
	}
	return created, nil
}
