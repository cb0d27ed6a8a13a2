package service

import (
	"context"
	"strings"
	"time"

	"github.com/valadez/empenos-api/internal/calc"
	"github.com/valadez/empenos-api/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Investors & treasury contracts
// ============================================================

func (s *PawnService) CreateInvestor(ctx context.Context, tenantID string, inv *domain.Investor) (*domain.Investor, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.CreateInvestor")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	if strings.TrimSpace(inv.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if strings.TrimSpace(inv.Document) == "" {
		return nil, &domain.ErrValidation{Field: "document", Message: "required"}
	}

	inv.ID = uuid.New().String()
	inv.TenantID = tenantID

	created, err := s.investors.CreateInvestor(ctx, inv)
	if err != nil {
		s.logger.Error("failed to create investor", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (s *PawnService) GetInvestor(ctx context.Context, tenantID, investorID string) (*domain.Investor, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.GetInvestor")
	defer span.End()

	return s.investors.GetInvestor(ctx, tenantID, investorID)
}

func (s *PawnService) ListInvestors(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Investor, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.ListInvestors")
	defer span.End()

	return s.investors.ListInvestors(ctx, tenantID, page, pageSize)
}

// CreateContract validates and persists one variant of the contract union.
// Exactly the variant's own term fields are accepted; a LOAN_CONTRACT with
// equity terms (or vice versa) is rejected rather than silently ignored.
func (s *PawnService) CreateContract(ctx context.Context, tenantID, investorID string, req *domain.ContractRequest) (*domain.InvestorContract, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.CreateContract")
	defer span.End()
	span.SetAttributes(attribute.String("investor.id", investorID), attribute.String("type", string(req.Type)))

	if _, err := s.investors.GetInvestor(ctx, tenantID, investorID); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "startDate", Message: "invalid format, use YYYY-MM-DD"}
	}
	if err := validateContractTerms(req); err != nil {
		return nil, err
	}

	contract := &domain.InvestorContract{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		InvestorID:  investorID,
		Type:        req.Type,
		Amount:      req.Amount,
		StartDate:   startDate,
		Status:      "active",
		LoanTerms:   req.LoanTerms,
		EquityTerms: req.EquityTerms,
	}
	created, err := s.investors.CreateContract(ctx, contract)
	if err != nil {
		s.logger.Error("failed to create investor contract",
			zap.String("investor_id", investorID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("investor contract created",
		zap.String("tenant_id", tenantID),
		zap.String("investor_id", investorID),
		zap.String("contract_id", created.ID),
		zap.String("type", string(req.Type)),
	)
	return created, nil
}

func (s *PawnService) ListContracts(ctx context.Context, tenantID, investorID string) ([]domain.InvestorContract, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.ListContracts")
	defer span.End()

	return s.investors.ListContracts(ctx, tenantID, investorID)
}

// GetContractYield reports the yield accrued by a LOAN_CONTRACT as of a point
// in time, using the same day-count rules as the loan calculator. Equity
// contracts distribute profit shares, not time-based yield.
func (s *PawnService) GetContractYield(ctx context.Context, tenantID, investorID, contractID string, asOf time.Time) (*domain.YieldResponse, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.GetContractYield")
	defer span.End()
	span.SetAttributes(attribute.String("contract.id", contractID))

	contract, err := s.investors.GetContract(ctx, tenantID, investorID, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Type != domain.ContractLoan {
		return nil, &domain.ErrValidation{Field: "type", Message: "equity contracts have no time-based yield"}
	}
	if contract.LoanTerms == nil {
		return nil, &domain.ErrValidation{Field: "loanTerms", Message: "contract has no loan terms"}
	}

	days := calc.ElapsedDays(contract.StartDate, asOf)
	yield, err := contractYield(contract.Amount, contract.LoanTerms, days)
	if err != nil {
		return nil, err
	}

	return &domain.YieldResponse{
		ContractID:     contract.ID,
		Type:           contract.Type,
		Principal:      contract.Amount,
		ElapsedDays:    days,
		Yield:          yield,
		YieldFormatted: calc.FormatAmount(yield),
		AsOf:           asOf.Format(time.RFC3339),
	}, nil
}

// contractYield accrues simple interest linearly per day, or compounds the
// monthly rate per completed month with a linear fraction for the remainder.
func contractYield(amount decimal.Decimal, terms *domain.LoanTerms, days int) (decimal.Decimal, error) {
	rate := terms.MonthlyRate.Div(decimal.NewFromInt(100))

	switch terms.Accrual {
	case domain.AccrualSimple:
		return amount.Mul(rate).
			Mul(decimal.NewFromInt(int64(days))).
			Div(decimal.NewFromInt(30)).
			Round(2), nil

	case domain.AccrualCompound:
		months := int64(days / 30)
		rem := int64(days % 30)
		grown := amount
		if months > 0 {
			grown = grown.Mul(decimal.NewFromInt(1).Add(rate).Pow(decimal.NewFromInt(months)))
		}
		if rem > 0 {
			fraction := rate.Mul(decimal.NewFromInt(rem)).Div(decimal.NewFromInt(30))
			grown = grown.Mul(decimal.NewFromInt(1).Add(fraction))
		}
		return grown.Sub(amount).Round(2), nil

	default:
		return decimal.Zero, &domain.ErrValidation{Field: "accrual", Message: "unknown accrual method: " + string(terms.Accrual)}
	}
}

func validateContractTerms(req *domain.ContractRequest) error {
	switch req.Type {
	case domain.ContractLoan:
		if req.EquityTerms != nil {
			return &domain.ErrValidation{Field: "equityTerms", Message: "not allowed on LOAN_CONTRACT"}
		}
		if req.LoanTerms == nil {
			return &domain.ErrValidation{Field: "loanTerms", Message: "required for LOAN_CONTRACT"}
		}
		if !req.LoanTerms.MonthlyRate.IsPositive() {
			return &domain.ErrValidation{Field: "loanTerms.monthlyRate", Message: "must be positive"}
		}
		if req.LoanTerms.Accrual != domain.AccrualSimple && req.LoanTerms.Accrual != domain.AccrualCompound {
			return &domain.ErrValidation{Field: "loanTerms.accrual", Message: "must be simple or compound"}
		}
		if req.LoanTerms.TermMonths <= 0 {
			return &domain.ErrValidation{Field: "loanTerms.termMonths", Message: "must be positive"}
		}
		return nil

	case domain.ContractEquity:
		if req.LoanTerms != nil {
			return &domain.ErrValidation{Field: "loanTerms", Message: "not allowed on EQUITY_CONTRACT"}
		}
		if req.EquityTerms == nil {
			return &domain.ErrValidation{Field: "equityTerms", Message: "required for EQUITY_CONTRACT"}
		}
		share := req.EquityTerms.SharePercent
		if !share.IsPositive() || share.GreaterThan(decimal.NewFromInt(100)) {
			return &domain.ErrValidation{Field: "equityTerms.sharePercent", Message: "must be in (0, 100]"}
		}
		return nil

	default:
		return &domain.ErrValidation{Field: "type", Message: "must be LOAN_CONTRACT or EQUITY_CONTRACT"}
	}
}
