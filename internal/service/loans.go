// Package service provides the business logic layer (use cases).
// PawnService handles the pawnshop operations: loan origination, payment
// collection, cash drawers, clients and investor contracts.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valadez/empenos-api/internal/calc"
	"github.com/valadez/empenos-api/internal/domain"
	"github.com/valadez/empenos-api/internal/infra/observability"
	"github.com/valadez/empenos-api/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var pawnTracer = otel.Tracer("service/pawn")

// PawnService orchestrates the pawnshop operations via the Supabase stores.
type PawnService struct {
	loans     port.LoanStore
	payments  port.PaymentStore
	drawers   port.DrawerStore
	clients   port.ClientStore
	investors port.InvestorStore
	drafts    port.DraftStore
	loanCache port.Cache[domain.Loan]
	metrics   *observability.Metrics
	logger    *zap.Logger

	defaultTermDays  int
	defaultGraceDays int
}

// NewPawnService creates a new pawn service.
func NewPawnService(
	loans port.LoanStore,
	payments port.PaymentStore,
	drawers port.DrawerStore,
	clients port.ClientStore,
	investors port.InvestorStore,
	drafts port.DraftStore,
	loanCache port.Cache[domain.Loan],
	metrics *observability.Metrics,
	logger *zap.Logger,
	defaultGraceDays int,
) *PawnService {
	return &PawnService{
		loans:            loans,
		payments:         payments,
		drawers:          drawers,
		clients:          clients,
		investors:        investors,
		drafts:           drafts,
		loanCache:        loanCache,
		metrics:          metrics,
		logger:           logger,
		defaultTermDays:  30,
		defaultGraceDays: defaultGraceDays,
	}
}

// ============================================================
// Loans — originate, get, list, schedule
// ============================================================

func (s *PawnService) OriginateLoan(ctx context.Context, tenantID, operatorID string, req *domain.OriginateLoanRequest) (*domain.Loan, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.OriginateLoan")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID), attribute.String("client.id", req.ClientID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("originate_loan", time.Since(start)) }()

	if err := validateOriginateRequest(req); err != nil {
		return nil, err
	}
	if req.TermDays == 0 {
		req.TermDays = s.defaultTermDays
	}
	if req.GraceDays == 0 {
		req.GraceDays = s.defaultGraceDays
	}
	if req.ProrationMode == "" {
		req.ProrationMode = domain.ProrationDaily
	}
	if req.ProrationMode != domain.ProrationDaily && req.ProrationMode != domain.ProrationWeekly {
		return nil, &domain.ErrValidation{Field: "prorationMode", Message: "must be daily or weekly"}
	}

	// Client must exist before money leaves the drawer.
	if _, err := s.clients.GetClient(ctx, tenantID, req.ClientID); err != nil {
		return nil, err
	}

	// Disbursement is cash out: the branch needs an open drawer.
	drawer, err := s.drawers.GetOpenDrawer(ctx, tenantID, req.BranchID)
	if err != nil {
		return nil, &domain.ErrDrawerClosed{BranchID: req.BranchID}
	}

	now := time.Now()
	loan := &domain.Loan{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		BranchID:       req.BranchID,
		ClientID:       req.ClientID,
		ContractNumber: newContractNumber(),
		Collateral:     req.Collateral,
		Principal:      req.Principal,
		Balance:        req.Principal,
		MonthlyRate:    req.MonthlyRate,
		Penalty:        decimal.Zero,
		ProrationMode:  req.ProrationMode,
		StartDate:      now,
		DueDate:        now.AddDate(0, 0, req.TermDays),
		TermDays:       req.TermDays,
		GraceDays:      req.GraceDays,
		Status:         domain.LoanStatusCurrent,
	}

	created, err := s.loans.CreateLoan(ctx, loan)
	if err != nil {
		s.logger.Error("failed to create loan", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, err
	}

	// Record the disbursement against the open drawer.
	mv := &domain.DrawerMovement{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		DrawerID:  drawer.ID,
		Direction: "out",
		Concept:   "disbursement",
		Amount:    req.Principal,
		RefID:     created.ID,
	}
	if _, mvErr := s.drawers.CreateMovement(ctx, mv); mvErr != nil {
		s.logger.Error("failed to record disbursement movement",
			zap.String("loan_id", created.ID),
			zap.String("drawer_id", drawer.ID),
			zap.Error(mvErr))
	}

	s.metrics.IncrLoanOriginated()
	s.logger.Info("loan originated",
		zap.String("tenant_id", tenantID),
		zap.String("loan_id", created.ID),
		zap.String("contract", created.ContractNumber),
		zap.String("operator_id", operatorID),
		zap.String("principal", req.Principal.StringFixed(2)),
	)

	return created, nil
}

func (s *PawnService) GetLoan(ctx context.Context, tenantID, loanID string) (*domain.Loan, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.GetLoan")
	defer span.End()

	loan, err := s.loans.GetLoan(ctx, tenantID, loanID)
	if err != nil {
		return nil, err
	}
	applyBand(loan, time.Now())
	return loan, nil
}

func (s *PawnService) ListLoans(ctx context.Context, tenantID, status string, page, pageSize int) ([]domain.Loan, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.ListLoans")
	defer span.End()

	loans, err := s.loans.ListLoans(ctx, tenantID, status, page, pageSize)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range loans {
		applyBand(&loans[i], now)
	}
	return loans, nil
}

func (s *PawnService) ListClientLoans(ctx context.Context, tenantID, clientID string) ([]domain.Loan, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.ListClientLoans")
	defer span.End()

	loans, err := s.loans.ListClientLoans(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range loans {
		applyBand(&loans[i], now)
	}
	return loans, nil
}

// GetLoanSchedule renders the printed-contract weekly step table for a loan.
func (s *PawnService) GetLoanSchedule(ctx context.Context, tenantID, loanID string) ([]domain.ScheduleEntry, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.GetLoanSchedule")
	defer span.End()

	loan, err := s.loans.GetLoan(ctx, tenantID, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status == domain.LoanStatusClosed {
		return nil, &domain.ErrValidation{Field: "loanId", Message: "loan is closed"}
	}
	return calc.WeeklySchedule(loan.Balance, loan.MonthlyRate), nil
}

// ============================================================
// Drafts — cashier form state survives navigation
// ============================================================

func (s *PawnService) SaveDraft(ctx context.Context, tenantID, key string, value []byte) error {
	ctx, span := pawnTracer.Start(ctx, "PawnService.SaveDraft")
	defer span.End()

	if key == "" {
		return &domain.ErrValidation{Field: "key", Message: "required"}
	}
	return s.drafts.Save(ctx, tenantID, key, value)
}

func (s *PawnService) LoadDraft(ctx context.Context, tenantID, key string) ([]byte, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.LoadDraft")
	defer span.End()

	return s.drafts.Load(ctx, tenantID, key)
}

func (s *PawnService) ClearDraft(ctx context.Context, tenantID, key string) error {
	ctx, span := pawnTracer.Start(ctx, "PawnService.ClearDraft")
	defer span.End()

	return s.drafts.Clear(ctx, tenantID, key)
}

// ============================================================
// Internal helpers
// ============================================================

func validateOriginateRequest(req *domain.OriginateLoanRequest) error {
	if req.ClientID == "" {
		return &domain.ErrValidation{Field: "clientId", Message: "required"}
	}
	if req.BranchID == "" {
		return &domain.ErrValidation{Field: "branchId", Message: "required"}
	}
	if strings.TrimSpace(req.Collateral) == "" {
		return &domain.ErrValidation{Field: "collateral", Message: "required"}
	}
	if !req.Principal.IsPositive() {
		return &domain.ErrValidation{Field: "principal", Message: "must be positive"}
	}
	if req.MonthlyRate.IsNegative() {
		return &domain.ErrValidation{Field: "monthlyRate", Message: "must not be negative"}
	}
	if req.TermDays < 0 {
		return &domain.ErrValidation{Field: "termDays", Message: "must not be negative"}
	}
	return nil
}

// applyBand refreshes the display status of an open loan from its due date.
func applyBand(loan *domain.Loan, now time.Time) {
	if loan.Status == domain.LoanStatusClosed {
		return
	}
	loan.Status = calc.Band(loan.DueDate, loan.GraceDays, now)
}

func newContractNumber() string {
	return fmt.Sprintf("EMP-%s", strings.ToUpper(uuid.New().String()[:8]))
}
