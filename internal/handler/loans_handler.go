package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valadez/empenos-api/internal/domain"
	"github.com/valadez/empenos-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Loans — POST /v1/loans, GET /v1/loans, GET /v1/loans/{loanId},
// GET /v1/loans/{loanId}/schedule, GET /v1/clients/{clientId}/loans
// ============================================================

func originateLoanHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/loans")
		defer span.End()

		var req domain.OriginateLoanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.BranchID == "" {
			req.BranchID = BranchIDFromContext(ctx)
		}
		span.SetAttributes(attribute.String("client.id", req.ClientID))

		loan, err := svc.OriginateLoan(ctx, TenantIDFromContext(ctx), OperatorIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, loan)
	}
}

func getLoanHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/{loanId}")
		defer span.End()

		loanID := chi.URLParam(r, "loanId")
		loan, err := svc.GetLoan(ctx, TenantIDFromContext(ctx), loanID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loan)
	}
}

func listLoansHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans")
		defer span.End()

		page, pageSize := parsePagination(r)
		status := r.URL.Query().Get("status")

		loans, err := svc.ListLoans(ctx, TenantIDFromContext(ctx), status, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if loans == nil {
			loans = []domain.Loan{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"loans":     loans,
			"page":      page,
			"page_size": pageSize,
		})
	}
}

func listClientLoansHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients/{clientId}/loans")
		defer span.End()

		clientID := chi.URLParam(r, "clientId")
		loans, err := svc.ListClientLoans(ctx, TenantIDFromContext(ctx), clientID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if loans == nil {
			loans = []domain.Loan{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"loans": loans})
	}
}

func loanScheduleHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/{loanId}/schedule")
		defer span.End()

		loanID := chi.URLParam(r, "loanId")
		schedule, err := svc.GetLoanSchedule(ctx, TenantIDFromContext(ctx), loanID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"loan_id":  loanID,
			"schedule": schedule,
		})
	}
}
