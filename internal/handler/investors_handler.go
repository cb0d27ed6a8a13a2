package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
	"github.com/valadez/empenos-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Investors and treasury contracts
// ============================================================

func createInvestorHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/investors")
		defer span.End()

		var inv domain.Investor
		if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := svc.CreateInvestor(ctx, TenantIDFromContext(ctx), &inv)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func getInvestorHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/investors/{investorId}")
		defer span.End()

		investorID := chi.URLParam(r, "investorId")
		inv, err := svc.GetInvestor(ctx, TenantIDFromContext(ctx), investorID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func listInvestorsHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/investors")
		defer span.End()

		page, pageSize := parsePagination(r)
		investors, err := svc.ListInvestors(ctx, TenantIDFromContext(ctx), page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if investors == nil {
			investors = []domain.Investor{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"investors": investors,
			"page":      page,
			"page_size": pageSize,
		})
	}
}

func createContractHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/investors/{investorId}/contracts")
		defer span.End()

		investorID := chi.URLParam(r, "investorId")

		var req domain.ContractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		contract, err := svc.CreateContract(ctx, TenantIDFromContext(ctx), investorID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, contract)
	}
}

func listContractsHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/investors/{investorId}/contracts")
		defer span.End()

		investorID := chi.URLParam(r, "investorId")
		contracts, err := svc.ListContracts(ctx, TenantIDFromContext(ctx), investorID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if contracts == nil {
			contracts = []domain.InvestorContract{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"investor_id": investorID,
			"contracts":   contracts,
		})
	}
}

func contractYieldHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/investors/{investorId}/contracts/{contractId}/yield")
		defer span.End()

		investorID := chi.URLParam(r, "investorId")
		contractID := chi.URLParam(r, "contractId")

		asOf := time.Now().UTC()
		if raw := r.URL.Query().Get("as_of"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
				return
			}
			asOf = parsed
		}

		yield, err := svc.GetContractYield(ctx, TenantIDFromContext(ctx), investorID, contractID, asOf)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, yield)
	}
}
