package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/valadez/empenos-api/internal/domain"
)

// ============================================================
// Loans — CRUD via PostgREST
// ============================================================

func (c *Client) CreateLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateLoan")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", loan.TenantID))

	body, err := c.post(ctx, "loans", map[string]any{
		"id":              loan.ID,
		"tenant_id":       loan.TenantID,
		"branch_id":       loan.BranchID,
		"client_id":       loan.ClientID,
		"contract_number": loan.ContractNumber,
		"collateral":      loan.Collateral,
		"principal":       loan.Principal,
		"balance":         loan.Balance,
		"monthly_rate":    loan.MonthlyRate,
		"penalty":         loan.Penalty,
		"proration_mode":  loan.ProrationMode,
		"start_date":      loan.StartDate.Format(time.RFC3339),
		"due_date":        loan.DueDate.Format(time.RFC3339),
		"term_days":       loan.TermDays,
		"grace_days":      loan.GraceDays,
		"status":          loan.Status,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/loans", Err: err}
	}

	rows, err := decodeRows[domain.Loan](body, "loan")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return loan, nil
	}
	return &rows[0], nil
}

func (c *Client) GetLoan(ctx context.Context, tenantID, loanID string) (*domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLoan")
	defer span.End()

	path := fmt.Sprintf("loans?tenant_id=eq.%s&id=eq.%s&limit=1", tenantID, loanID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/loans", Err: err}
	}

	rows, err := decodeRows[domain.Loan](body, "loan")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: loanID}
	}
	return &rows[0], nil
}

func (c *Client) GetLoansByIDs(ctx context.Context, tenantID string, loanIDs []string) ([]domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLoansByIDs")
	defer span.End()

	path := fmt.Sprintf("loans?tenant_id=eq.%s&id=in.(%s)", tenantID, strings.Join(loanIDs, ","))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/loans", Err: err}
	}
	return decodeRows[domain.Loan](body, "loans")
}

func (c *Client) ListLoans(ctx context.Context, tenantID, status string, page, pageSize int) ([]domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListLoans")
	defer span.End()

	path := fmt.Sprintf("loans?tenant_id=eq.%s&order=created_at.desc&%s", tenantID, paginationRange(page, pageSize))
	if status != "" {
		path += "&status=eq." + status
	}
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/loans", Err: err}
	}
	return decodeRows[domain.Loan](body, "loans")
}

func (c *Client) ListClientLoans(ctx context.Context, tenantID, clientID string) ([]domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListClientLoans")
	defer span.End()

	path := fmt.Sprintf("loans?tenant_id=eq.%s&client_id=eq.%s&order=created_at.desc", tenantID, clientID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/loans", Err: err}
	}
	return decodeRows[domain.Loan](body, "loans")
}

func (c *Client) UpdateLoan(ctx context.Context, tenantID, loanID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLoan")
	defer span.End()

	updates["updated_at"] = time.Now().Format(time.RFC3339)
	path := fmt.Sprintf("loans?tenant_id=eq.%s&id=eq.%s", tenantID, loanID)
	if err := c.patch(ctx, path, updates); err != nil {
		return &domain.ErrExternalService{Service: "supabase/loans", Err: err}
	}
	return nil
}
