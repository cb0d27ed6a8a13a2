package supabase

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/valadez/empenos-api/internal/domain"
)

// ============================================================
// Payments — append-only rows, annulled via soft flag
// ============================================================

func (c *Client) CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePayment")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", p.TenantID),
		attribute.String("payment.kind", string(p.Kind)),
	)

	body, err := c.post(ctx, "payments", map[string]any{
		"id":              p.ID,
		"tenant_id":       p.TenantID,
		"group_id":        p.GroupID,
		"loan_id":         p.LoanID,
		"client_id":       p.ClientID,
		"kind":            p.Kind,
		"amount":          p.Amount,
		"capital":         p.Capital,
		"interest":        p.Interest,
		"penalty":         p.Penalty,
		"method":          p.Method,
		"notes":           p.Notes,
		"operator_id":     p.OperatorID,
		"drawer_id":       p.DrawerID,
		"idempotency_key": p.IdempotencyKey,
		"annulled":        false,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/payments", Err: err}
	}

	rows, err := decodeRows[domain.Payment](body, "payment")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return p, nil
	}
	return &rows[0], nil
}

func (c *Client) GetPayment(ctx context.Context, tenantID, paymentID string) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPayment")
	defer span.End()

	path := fmt.Sprintf("payments?tenant_id=eq.%s&id=eq.%s&limit=1", tenantID, paymentID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/payments", Err: err}
	}

	rows, err := decodeRows[domain.Payment](body, "payment")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "payment", ID: paymentID}
	}
	return &rows[0], nil
}

func (c *Client) GetPaymentsByGroup(ctx context.Context, tenantID, groupID string) ([]domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPaymentsByGroup")
	defer span.End()

	path := fmt.Sprintf("payments?tenant_id=eq.%s&group_id=eq.%s&order=created_at.asc", tenantID, groupID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/payments", Err: err}
	}
	return decodeRows[domain.Payment](body, "payments")
}

func (c *Client) FindByIdempotencyKey(ctx context.Context, tenantID, key string) ([]domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindByIdempotencyKey")
	defer span.End()

	path := fmt.Sprintf("payments?tenant_id=eq.%s&idempotency_key=eq.%s", tenantID, key)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/payments", Err: err}
	}
	return decodeRows[domain.Payment](body, "payments")
}

func (c *Client) ListClientPayments(ctx context.Context, tenantID, clientID string, page, pageSize int) ([]domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListClientPayments")
	defer span.End()

	path := fmt.Sprintf("payments?tenant_id=eq.%s&client_id=eq.%s&order=created_at.desc&%s",
		tenantID, clientID, paginationRange(page, pageSize))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/payments", Err: err}
	}
	return decodeRows[domain.Payment](body, "payments")
}

// AnnulPayment flips the soft-void flag. Payment rows are never deleted.
func (c *Client) AnnulPayment(ctx context.Context, tenantID, paymentID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.AnnulPayment")
	defer span.End()

	updates["annulled"] = true
	updates["annulled_at"] = time.Now().Format(time.RFC3339)
	path := fmt.Sprintf("payments?tenant_id=eq.%s&id=eq.%s", tenantID, paymentID)
	if err := c.patch(ctx, path, updates); err != nil {
		return &domain.ErrExternalService{Service: "supabase/payments", Err: err}
	}
	return nil
}
