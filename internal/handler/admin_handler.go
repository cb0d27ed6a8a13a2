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
// Platform administration (sysadmin only)
// ============================================================

func provisionTenantHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/tenants")
		defer span.End()

		var req domain.ProvisionTenantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.ProvisionTenant(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func listTenantsHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/tenants")
		defer span.End()

		page, pageSize := parsePagination(r)
		tenants, err := svc.ListTenants(ctx, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if tenants == nil {
			tenants = []domain.Tenant{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"tenants":   tenants,
			"page":      page,
			"page_size": pageSize,
		})
	}
}

func suspendTenantHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/tenants/{tenantId}/suspend")
		defer span.End()

		tenantID := chi.URLParam(r, "tenantId")
		if err := svc.SuspendTenant(ctx, tenantID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"tenant_id": tenantID, "status": "suspended"})
	}
}

func activateTenantHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/tenants/{tenantId}/activate")
		defer span.End()

		tenantID := chi.URLParam(r, "tenantId")
		if err := svc.ActivateTenant(ctx, tenantID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"tenant_id": tenantID, "status": "active"})
	}
}
