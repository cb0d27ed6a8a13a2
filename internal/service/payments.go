package service

import (
	"context"
	"fmt"
	"time"

	"github.com/valadez/empenos-api/internal/calc"
	"github.com/valadez/empenos-api/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// snapshotConcurrency bounds the parallel Supabase fetches for a quote cart.
const snapshotConcurrency = 8

// ============================================================
// Payments — quote, process, annul, history
// ============================================================

// QuotePayment resolves a payment intent against live loan snapshots without
// committing anything. The cashier confirms this quote before processing.
func (s *PawnService) QuotePayment(ctx context.Context, tenantID string, intent domain.PaymentIntent) (*domain.PaymentQuoteResponse, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.QuotePayment")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID), attribute.String("kind", string(intent.Kind)))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("quote_payment", time.Since(start)) }()

	intent.LoanIDs = dedupIDs(intent.LoanIDs)
	loans, err := s.fetchSnapshots(ctx, tenantID, intent.LoanIDs, true)
	if err != nil {
		return nil, err
	}

	lines, err := buildLines(loans, time.Now())
	if err != nil {
		return nil, err
	}

	quote, err := calc.Resolve(intent, lines)
	if err != nil {
		return nil, err
	}

	return quoteToResponse(quote, loans), nil
}

// ProcessPayment commits a payment intent: one payment row per selected loan,
// balance/term patches per intent kind, and a cash-in drawer movement. The
// idempotency key makes a retried confirm a no-op rejection instead of a
// double charge.
func (s *PawnService) ProcessPayment(ctx context.Context, tenantID, operatorID, branchID string, intent domain.PaymentIntent, idempotencyKey string) (*domain.ProcessPaymentResponse, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.ProcessPayment")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("kind", string(intent.Kind)),
		attribute.Int("loans", len(intent.LoanIDs)),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("process_payment", time.Since(start)) }()

	if idempotencyKey == "" {
		return nil, &domain.ErrValidation{Field: "idempotencyKey", Message: "required"}
	}
	if intent.Method == "" {
		intent.Method = "cash"
	}

	existing, err := s.payments.FindByIdempotencyKey(ctx, tenantID, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &domain.ErrDuplicate{Key: idempotencyKey}
	}

	// Cash comes in: the branch needs an open drawer.
	drawer, err := s.drawers.GetOpenDrawer(ctx, tenantID, branchID)
	if err != nil {
		return nil, &domain.ErrDrawerClosed{BranchID: branchID}
	}

	// Resolve against fresh snapshots; a stale cached balance must not
	// decide how much money changes hands.
	intent.LoanIDs = dedupIDs(intent.LoanIDs)
	loans, err := s.fetchSnapshots(ctx, tenantID, intent.LoanIDs, false)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lines, err := buildLines(loans, now)
	if err != nil {
		return nil, err
	}

	quote, err := calc.Resolve(intent, lines)
	if err != nil {
		return nil, err
	}

	groupID := uuid.New().String()
	resp := &domain.ProcessPaymentResponse{
		GroupID:         groupID,
		Kind:            quote.Kind,
		Amount:          quote.Amount,
		AmountFormatted: calc.FormatAmount(quote.Amount),
		ProcessedAt:     now.Format(time.RFC3339),
	}

	// Rows are written one by one; PostgREST offers no cross-table
	// transaction here, so a mid-loop failure leaves the group partial.
	// Recovery is operational: annul the partial group and reissue under
	// a fresh idempotency key.
	byID := loansByID(loans)
	for _, alloc := range quote.Allocations {
		loan := byID[alloc.LoanID]

		payment := &domain.Payment{
			ID:             uuid.New().String(),
			TenantID:       tenantID,
			GroupID:        groupID,
			LoanID:         loan.ID,
			ClientID:       loan.ClientID,
			Kind:           quote.Kind,
			Amount:         alloc.Amount,
			Capital:        alloc.Capital,
			Interest:       alloc.Interest,
			Penalty:        alloc.Penalty,
			Method:         intent.Method,
			Notes:          alloc.Notes,
			OperatorID:     operatorID,
			DrawerID:       drawer.ID,
			IdempotencyKey: idempotencyKey,
		}
		created, err := s.payments.CreatePayment(ctx, payment)
		if err != nil {
			s.logger.Error("failed to create payment row",
				zap.String("group_id", groupID),
				zap.String("loan_id", loan.ID),
				zap.Error(err))
			return nil, err
		}
		resp.Payments = append(resp.Payments, *created)
		resp.Lines = append(resp.Lines, allocationToLine(alloc, loan))

		if err := s.applyIntentToLoan(ctx, tenantID, loan, quote.Kind, alloc, now); err != nil {
			s.logger.Error("failed to apply payment to loan",
				zap.String("group_id", groupID),
				zap.String("loan_id", loan.ID),
				zap.Error(err))
			return nil, err
		}
		s.loanCache.Delete(loanCacheKey(tenantID, loan.ID))
	}

	// A waived renewal moves no cash; skip the zero movement.
	if quote.Amount.IsPositive() {
		mv := &domain.DrawerMovement{
			ID:        uuid.New().String(),
			TenantID:  tenantID,
			DrawerID:  drawer.ID,
			Direction: "in",
			Concept:   "payment",
			Amount:    quote.Amount,
			RefID:     groupID,
		}
		if _, mvErr := s.drawers.CreateMovement(ctx, mv); mvErr != nil {
			s.logger.Error("failed to record payment movement",
				zap.String("group_id", groupID),
				zap.String("drawer_id", drawer.ID),
				zap.Error(mvErr))
		}
	}

	s.metrics.IncrPayment(string(quote.Kind), "processed")
	s.logger.Info("payment processed",
		zap.String("tenant_id", tenantID),
		zap.String("group_id", groupID),
		zap.String("kind", string(quote.Kind)),
		zap.Int("loans", len(quote.Allocations)),
		zap.String("amount", quote.Amount.StringFixed(2)),
	)

	return resp, nil
}

// AnnulPayment soft-voids a payment: the row keeps its figures and gains the
// annul flags; it is never deleted. If the drawer the payment landed in is
// still open, a compensating cash-out movement is recorded.
func (s *PawnService) AnnulPayment(ctx context.Context, tenantID, operatorID, paymentID string, req *domain.AnnulPaymentRequest) (*domain.Payment, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.AnnulPayment")
	defer span.End()
	span.SetAttributes(attribute.String("payment.id", paymentID))

	if req.Reason == "" {
		return nil, &domain.ErrValidation{Field: "reason", Message: "required"}
	}

	payment, err := s.payments.GetPayment(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Annulled {
		return nil, &domain.ErrAnnulled{PaymentID: paymentID}
	}

	now := time.Now()
	updates := map[string]any{
		"annulled":     true,
		"annul_reason": req.Reason,
		"annulled_by":  operatorID,
		"annulled_at":  now.Format(time.RFC3339),
	}
	if err := s.payments.AnnulPayment(ctx, tenantID, paymentID, updates); err != nil {
		return nil, err
	}

	if payment.Amount.IsPositive() {
		drawer, dErr := s.drawers.GetDrawer(ctx, tenantID, payment.DrawerID)
		if dErr == nil && drawer.Status == "open" {
			mv := &domain.DrawerMovement{
				ID:        uuid.New().String(),
				TenantID:  tenantID,
				DrawerID:  drawer.ID,
				Direction: "out",
				Concept:   "annulment",
				Amount:    payment.Amount,
				RefID:     payment.ID,
			}
			if _, mvErr := s.drawers.CreateMovement(ctx, mv); mvErr != nil {
				s.logger.Error("failed to record annulment movement",
					zap.String("payment_id", paymentID), zap.Error(mvErr))
			}
		}
	}

	payment.Annulled = true
	payment.AnnulReason = req.Reason
	payment.AnnulledBy = operatorID
	payment.AnnulledAt = &now

	s.metrics.IncrPayment(string(payment.Kind), "annulled")
	s.logger.Info("payment annulled",
		zap.String("tenant_id", tenantID),
		zap.String("payment_id", paymentID),
		zap.String("operator_id", operatorID),
		zap.String("reason", req.Reason),
	)

	return payment, nil
}

func (s *PawnService) ListClientPayments(ctx context.Context, tenantID, clientID string, page, pageSize int) ([]domain.Payment, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.ListClientPayments")
	defer span.End()

	return s.payments.ListClientPayments(ctx, tenantID, clientID, page, pageSize)
}

// ============================================================
// Internal helpers
// ============================================================

// applyIntentToLoan patches the loan row after one allocation is persisted.
func (s *PawnService) applyIntentToLoan(ctx context.Context, tenantID string, loan *domain.Loan, kind domain.IntentKind, alloc calc.Allocation, now time.Time) error {
	switch kind {
	case domain.IntentRenew:
		// Interest and penalties settled (or waived): the term re-anchors.
		return s.loans.UpdateLoan(ctx, tenantID, loan.ID, map[string]any{
			"start_date": now.Format(time.RFC3339),
			"due_date":   now.AddDate(0, 0, loan.TermDays).Format(time.RFC3339),
			"penalty":    "0",
			"status":     string(domain.LoanStatusCurrent),
		})

	case domain.IntentLiquidate:
		return s.loans.UpdateLoan(ctx, tenantID, loan.ID, map[string]any{
			"balance": "0",
			"penalty": "0",
			"status":  string(domain.LoanStatusClosed),
		})

	case domain.IntentAmortize:
		// Interest is paid in full, so accrual re-anchors at now. Balance
		// can never exceed principal once the capital share is applied.
		newBalance := loan.Balance.Sub(alloc.Capital)
		if newBalance.IsNegative() {
			newBalance = decimal.Zero
		}
		newPenalty := loan.Penalty.Sub(alloc.Penalty)
		if newPenalty.IsNegative() {
			newPenalty = decimal.Zero
		}
		updates := map[string]any{
			"balance":    newBalance.StringFixed(2),
			"penalty":    newPenalty.StringFixed(2),
			"start_date": now.Format(time.RFC3339),
		}
		if newBalance.IsZero() && newPenalty.IsZero() {
			updates["status"] = string(domain.LoanStatusClosed)
		}
		return s.loans.UpdateLoan(ctx, tenantID, loan.ID, updates)

	default:
		return &domain.ErrInvalidInput{Field: "kind", Message: "unknown intent kind: " + string(kind)}
	}
}

// fetchSnapshots loads the selected loans concurrently. Quotes may serve from
// the snapshot cache; processing always reads through to Supabase.
func (s *PawnService) fetchSnapshots(ctx context.Context, tenantID string, loanIDs []string, useCache bool) ([]*domain.Loan, error) {
	if len(loanIDs) == 0 {
		return nil, &domain.ErrEmptySelection{}
	}

	loans := make([]*domain.Loan, len(loanIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotConcurrency)

	for i, id := range loanIDs {
		i, id := i, id
		g.Go(func() error {
			key := loanCacheKey(tenantID, id)
			if useCache {
				if cached, ok := s.loanCache.Get(key); ok {
					s.metrics.IncrCacheHit("loans")
					loans[i] = &cached
					return nil
				}
				s.metrics.IncrCacheMiss("loans")
			}

			loan, err := s.loans.GetLoan(gctx, tenantID, id)
			if err != nil {
				return err
			}
			if useCache {
				s.loanCache.Set(key, *loan)
			}
			loans[i] = loan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, loan := range loans {
		if loan.Status == domain.LoanStatusClosed {
			return nil, &domain.ErrValidation{Field: "loanIds", Message: "loan is closed: " + loan.ID}
		}
	}
	return loans, nil
}

// buildLines computes the per-loan breakdown feeding the intent resolver.
func buildLines(loans []*domain.Loan, now time.Time) ([]calc.Line, error) {
	lines := make([]calc.Line, 0, len(loans))
	for _, loan := range loans {
		days := calc.ElapsedDays(loan.StartDate, now)
		interest, err := calc.Interest(loan.Balance, loan.MonthlyRate, days, loan.ProrationMode)
		if err != nil {
			return nil, err
		}
		lines = append(lines, calc.Line{
			LoanID:      loan.ID,
			Capital:     loan.Balance,
			Interest:    interest,
			Penalty:     loan.Penalty,
			ElapsedDays: days,
		})
	}
	return lines, nil
}

func quoteToResponse(quote *calc.Quote, loans []*domain.Loan) *domain.PaymentQuoteResponse {
	byID := loansByID(loans)
	resp := &domain.PaymentQuoteResponse{
		Kind:            quote.Kind,
		Amount:          quote.Amount,
		AmountFormatted: calc.FormatAmount(quote.Amount),
		Capital:         quote.Totals.Capital,
		Interest:        quote.Totals.Interest,
		Penalty:         quote.Totals.Penalty,
		MaxElapsedDays:  quote.Totals.MaxElapsedDays,
	}
	for _, alloc := range quote.Allocations {
		resp.Lines = append(resp.Lines, allocationToLine(alloc, byID[alloc.LoanID]))
	}
	return resp
}

func allocationToLine(alloc calc.Allocation, loan *domain.Loan) domain.PaymentLineDTO {
	line := domain.PaymentLineDTO{
		LoanID:          alloc.LoanID,
		ElapsedDays:     alloc.ElapsedDays,
		Amount:          alloc.Amount,
		AmountFormatted: calc.FormatAmount(alloc.Amount),
		Capital:         alloc.Capital,
		Interest:        alloc.Interest,
		Penalty:         alloc.Penalty,
		Notes:           alloc.Notes,
	}
	if loan != nil {
		line.ContractNumber = loan.ContractNumber
	}
	return line
}

func loansByID(loans []*domain.Loan) map[string]*domain.Loan {
	m := make(map[string]*domain.Loan, len(loans))
	for _, loan := range loans {
		m[loan.ID] = loan
	}
	return m
}

// dedupIDs drops repeated loan ids while preserving selection order.
func dedupIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func loanCacheKey(tenantID, loanID string) string {
	return fmt.Sprintf("%s:%s", tenantID, loanID)
}
