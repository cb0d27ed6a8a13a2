package service

import (
	"context"
	"time"

	"github.com/valadez/empenos-api/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Cash drawers — open, close, movements, summary
// ============================================================

func (s *PawnService) OpenDrawer(ctx context.Context, tenantID, operatorID string, req *domain.OpenDrawerRequest) (*domain.Drawer, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.OpenDrawer")
	defer span.End()
	span.SetAttributes(attribute.String("branch.id", req.BranchID))

	if req.BranchID == "" {
		return nil, &domain.ErrValidation{Field: "branchId", Message: "required"}
	}
	if req.OpeningFloat.IsNegative() {
		return nil, &domain.ErrValidation{Field: "openingFloat", Message: "must not be negative"}
	}

	// One open drawer per branch.
	if open, err := s.drawers.GetOpenDrawer(ctx, tenantID, req.BranchID); err == nil && open != nil {
		return nil, &domain.ErrConflict{Message: "branch already has an open drawer: " + open.ID}
	}

	drawer := &domain.Drawer{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		BranchID:     req.BranchID,
		OperatorID:   operatorID,
		Status:       "open",
		OpeningFloat: req.OpeningFloat,
		OpenedAt:     time.Now(),
	}
	created, err := s.drawers.OpenDrawer(ctx, drawer)
	if err != nil {
		s.logger.Error("failed to open drawer", zap.String("branch_id", req.BranchID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("drawer opened",
		zap.String("tenant_id", tenantID),
		zap.String("drawer_id", created.ID),
		zap.String("branch_id", req.BranchID),
		zap.String("opening_float", req.OpeningFloat.StringFixed(2)),
	)
	return created, nil
}

// CloseDrawer reconciles the physically counted cash against the expected
// total (opening float + ins - outs) and closes the shift.
func (s *PawnService) CloseDrawer(ctx context.Context, tenantID, drawerID string, req *domain.CloseDrawerRequest) (*domain.DrawerSummary, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.CloseDrawer")
	defer span.End()
	span.SetAttributes(attribute.String("drawer.id", drawerID))

	if req.CountedCash.IsNegative() {
		return nil, &domain.ErrValidation{Field: "countedCash", Message: "must not be negative"}
	}

	drawer, err := s.drawers.GetDrawer(ctx, tenantID, drawerID)
	if err != nil {
		return nil, err
	}
	if drawer.Status != "open" {
		return nil, &domain.ErrConflict{Message: "drawer already closed: " + drawerID}
	}

	summary, err := s.summarize(ctx, tenantID, drawer)
	if err != nil {
		return nil, err
	}

	difference := req.CountedCash.Sub(summary.Expected)
	now := time.Now()
	updates := map[string]any{
		"status":       "closed",
		"counted_cash": req.CountedCash.StringFixed(2),
		"difference":   difference.StringFixed(2),
		"closed_at":    now.Format(time.RFC3339),
	}
	if err := s.drawers.CloseDrawer(ctx, tenantID, drawerID, updates); err != nil {
		return nil, err
	}

	s.logger.Info("drawer closed",
		zap.String("tenant_id", tenantID),
		zap.String("drawer_id", drawerID),
		zap.String("expected", summary.Expected.StringFixed(2)),
		zap.String("counted", req.CountedCash.StringFixed(2)),
		zap.String("difference", difference.StringFixed(2)),
	)
	return summary, nil
}

// RecordMovement registers a manual cash in/out against an open drawer.
func (s *PawnService) RecordMovement(ctx context.Context, tenantID, drawerID string, req *domain.DrawerMovementRequest) (*domain.DrawerMovement, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.RecordMovement")
	defer span.End()

	if req.Direction != "in" && req.Direction != "out" {
		return nil, &domain.ErrValidation{Field: "direction", Message: "must be in or out"}
	}
	if req.Concept == "" {
		return nil, &domain.ErrValidation{Field: "concept", Message: "required"}
	}
	if !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}

	drawer, err := s.drawers.GetDrawer(ctx, tenantID, drawerID)
	if err != nil {
		return nil, err
	}
	if drawer.Status != "open" {
		return nil, &domain.ErrDrawerClosed{BranchID: drawer.BranchID}
	}

	mv := &domain.DrawerMovement{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		DrawerID:  drawerID,
		Direction: req.Direction,
		Concept:   req.Concept,
		Amount:    req.Amount,
	}
	return s.drawers.CreateMovement(ctx, mv)
}

// GetCurrentDrawer returns the branch's open drawer, if any.
func (s *PawnService) GetCurrentDrawer(ctx context.Context, tenantID, branchID string) (*domain.Drawer, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.GetCurrentDrawer")
	defer span.End()

	return s.drawers.GetOpenDrawer(ctx, tenantID, branchID)
}

func (s *PawnService) GetDrawerSummary(ctx context.Context, tenantID, drawerID string) (*domain.DrawerSummary, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.GetDrawerSummary")
	defer span.End()

	drawer, err := s.drawers.GetDrawer(ctx, tenantID, drawerID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, tenantID, drawer)
}

func (s *PawnService) summarize(ctx context.Context, tenantID string, drawer *domain.Drawer) (*domain.DrawerSummary, error) {
	movements, err := s.drawers.ListMovements(ctx, tenantID, drawer.ID)
	if err != nil {
		return nil, err
	}

	totalIn := decimal.Zero
	totalOut := decimal.Zero
	for _, mv := range movements {
		if mv.Direction == "in" {
			totalIn = totalIn.Add(mv.Amount)
		} else {
			totalOut = totalOut.Add(mv.Amount)
		}
	}

	return &domain.DrawerSummary{
		DrawerID:     drawer.ID,
		OpeningFloat: drawer.OpeningFloat,
		TotalIn:      totalIn,
		TotalOut:     totalOut,
		Expected:     drawer.OpeningFloat.Add(totalIn).Sub(totalOut),
		Movements:    len(movements),
	}, nil
}
