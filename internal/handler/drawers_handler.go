package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valadez/empenos-api/internal/domain"
	"github.com/valadez/empenos-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Cash drawers — open, close, movements, current, summary
// ============================================================

func openDrawerHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/drawers/open")
		defer span.End()

		var req domain.OpenDrawerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.BranchID == "" {
			req.BranchID = BranchIDFromContext(ctx)
		}

		drawer, err := svc.OpenDrawer(ctx, TenantIDFromContext(ctx), OperatorIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, drawer)
	}
}

func closeDrawerHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/drawers/{drawerId}/close")
		defer span.End()

		drawerID := chi.URLParam(r, "drawerId")

		var req domain.CloseDrawerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		summary, err := svc.CloseDrawer(ctx, TenantIDFromContext(ctx), drawerID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func drawerMovementHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/drawers/{drawerId}/movements")
		defer span.End()

		drawerID := chi.URLParam(r, "drawerId")

		var req domain.DrawerMovementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		mv, err := svc.RecordMovement(ctx, TenantIDFromContext(ctx), drawerID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, mv)
	}
}

func currentDrawerHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/drawers/current")
		defer span.End()

		branchID := r.URL.Query().Get("branch_id")
		if branchID == "" {
			branchID = BranchIDFromContext(ctx)
		}

		drawer, err := svc.GetCurrentDrawer(ctx, TenantIDFromContext(ctx), branchID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, drawer)
	}
}

func drawerSummaryHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/drawers/{drawerId}/summary")
		defer span.End()

		drawerID := chi.URLParam(r, "drawerId")
		summary, err := svc.GetDrawerSummary(ctx, TenantIDFromContext(ctx), drawerID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
