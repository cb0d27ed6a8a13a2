package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
)

// ============================================================
// Investors & treasury contracts
// ============================================================

func (c *Client) CreateInvestor(ctx context.Context, inv *domain.Investor) (*domain.Investor, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateInvestor")
	defer span.End()

	body, err := c.post(ctx, "investors", map[string]any{
		"id":        inv.ID,
		"tenant_id": inv.TenantID,
		"name":      inv.Name,
		"document":  inv.Document,
		"email":     inv.Email,
		"phone":     inv.Phone,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/investors", Err: err}
	}

	rows, err := decodeRows[domain.Investor](body, "investor")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return inv, nil
	}
	return &rows[0], nil
}

func (c *Client) GetInvestor(ctx context.Context, tenantID, investorID string) (*domain.Investor, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetInvestor")
	defer span.End()

	path := fmt.Sprintf("investors?tenant_id=eq.%s&id=eq.%s&limit=1", tenantID, investorID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/investors", Err: err}
	}

	rows, err := decodeRows[domain.Investor](body, "investor")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "investor", ID: investorID}
	}
	return &rows[0], nil
}

func (c *Client) ListInvestors(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Investor, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInvestors")
	defer span.End()

	path := fmt.Sprintf("investors?tenant_id=eq.%s&order=name.asc&%s", tenantID, paginationRange(page, pageSize))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/investors", Err: err}
	}
	return decodeRows[domain.Investor](body, "investors")
}

// CreateContract persists one variant of the tagged contract union. The
// variant's term columns are nullable in the table; exactly one set is written.
func (c *Client) CreateContract(ctx context.Context, contract *domain.InvestorContract) (*domain.InvestorContract, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateContract")
	defer span.End()

	payload := map[string]any{
		"id":          contract.ID,
		"tenant_id":   contract.TenantID,
		"investor_id": contract.InvestorID,
		"type":        contract.Type,
		"amount":      contract.Amount,
		"start_date":  contract.StartDate.Format(time.RFC3339),
		"status":      contract.Status,
	}
	if contract.LoanTerms != nil {
		payload["loan_terms"] = contract.LoanTerms
	}
	if contract.EquityTerms != nil {
		payload["equity_terms"] = contract.EquityTerms
	}

	body, err := c.post(ctx, "investor_contracts", payload)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/investor_contracts", Err: err}
	}

	rows, err := decodeRows[domain.InvestorContract](body, "investor contract")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return contract, nil
	}
	return &rows[0], nil
}

func (c *Client) GetContract(ctx context.Context, tenantID, investorID, contractID string) (*domain.InvestorContract, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetContract")
	defer span.End()

	path := fmt.Sprintf("investor_contracts?tenant_id=eq.%s&investor_id=eq.%s&id=eq.%s&limit=1",
		tenantID, investorID, contractID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/investor_contracts", Err: err}
	}

	rows, err := decodeRows[domain.InvestorContract](body, "investor contract")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "investor contract", ID: contractID}
	}
	return &rows[0], nil
}

func (c *Client) ListContracts(ctx context.Context, tenantID, investorID string) ([]domain.InvestorContract, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListContracts")
	defer span.End()

	path := fmt.Sprintf("investor_contracts?tenant_id=eq.%s&investor_id=eq.%s&order=created_at.desc", tenantID, investorID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/investor_contracts", Err: err}
	}
	return decodeRows[domain.InvestorContract](body, "investor contracts")
}
