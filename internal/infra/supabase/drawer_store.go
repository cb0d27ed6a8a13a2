package supabase

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/valadez/empenos-api/internal/domain"
)

// ============================================================
// Cash drawers & movements
// ============================================================

func (c *Client) OpenDrawer(ctx context.Context, d *domain.Drawer) (*domain.Drawer, error) {
	ctx, span := tracer.Start(ctx, "Supabase.OpenDrawer")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", d.TenantID))

	body, err := c.post(ctx, "drawers", map[string]any{
		"id":            d.ID,
		"tenant_id":     d.TenantID,
		"branch_id":     d.BranchID,
		"operator_id":   d.OperatorID,
		"status":        d.Status,
		"opening_float": d.OpeningFloat,
		"opened_at":     d.OpenedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/drawers", Err: err}
	}

	rows, err := decodeRows[domain.Drawer](body, "drawer")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return d, nil
	}
	return &rows[0], nil
}

func (c *Client) GetDrawer(ctx context.Context, tenantID, drawerID string) (*domain.Drawer, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetDrawer")
	defer span.End()

	path := fmt.Sprintf("drawers?tenant_id=eq.%s&id=eq.%s&limit=1", tenantID, drawerID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/drawers", Err: err}
	}

	rows, err := decodeRows[domain.Drawer](body, "drawer")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "drawer", ID: drawerID}
	}
	return &rows[0], nil
}

// GetOpenDrawer returns the branch's open drawer, or ErrNotFound when the
// drawer is closed for the day.
func (c *Client) GetOpenDrawer(ctx context.Context, tenantID, branchID string) (*domain.Drawer, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetOpenDrawer")
	defer span.End()

	path := fmt.Sprintf("drawers?tenant_id=eq.%s&branch_id=eq.%s&status=eq.open&limit=1", tenantID, branchID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/drawers", Err: err}
	}

	rows, err := decodeRows[domain.Drawer](body, "drawer")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "open drawer", ID: branchID}
	}
	return &rows[0], nil
}

func (c *Client) CloseDrawer(ctx context.Context, tenantID, drawerID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.CloseDrawer")
	defer span.End()

	updates["status"] = "closed"
	updates["closed_at"] = time.Now().Format(time.RFC3339)
	path := fmt.Sprintf("drawers?tenant_id=eq.%s&id=eq.%s", tenantID, drawerID)
	if err := c.patch(ctx, path, updates); err != nil {
		return &domain.ErrExternalService{Service: "supabase/drawers", Err: err}
	}
	return nil
}

func (c *Client) CreateMovement(ctx context.Context, mv *domain.DrawerMovement) (*domain.DrawerMovement, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateMovement")
	defer span.End()

	body, err := c.post(ctx, "drawer_movements", map[string]any{
		"id":        mv.ID,
		"tenant_id": mv.TenantID,
		"drawer_id": mv.DrawerID,
		"direction": mv.Direction,
		"concept":   mv.Concept,
		"amount":    mv.Amount,
		"ref_id":    mv.RefID,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/drawer_movements", Err: err}
	}

	rows, err := decodeRows[domain.DrawerMovement](body, "drawer movement")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return mv, nil
	}
	return &rows[0], nil
}

func (c *Client) ListMovements(ctx context.Context, tenantID, drawerID string) ([]domain.DrawerMovement, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListMovements")
	defer span.End()

	path := fmt.Sprintf("drawer_movements?tenant_id=eq.%s&drawer_id=eq.%s&order=created_at.asc", tenantID, drawerID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/drawer_movements", Err: err}
	}
	return decodeRows[domain.DrawerMovement](body, "drawer movements")
}
