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
// Clients
// ============================================================

func createClientHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/clients")
		defer span.End()

		var req domain.ClientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		client, err := svc.CreateClient(ctx, TenantIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, client)
	}
}

func getClientHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients/{clientId}")
		defer span.End()

		clientID := chi.URLParam(r, "clientId")
		client, err := svc.GetClient(ctx, TenantIDFromContext(ctx), clientID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, client)
	}
}

func updateClientHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/clients/{clientId}")
		defer span.End()

		clientID := chi.URLParam(r, "clientId")

		var req domain.ClientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		client, err := svc.UpdateClient(ctx, TenantIDFromContext(ctx), clientID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, client)
	}
}

func searchClientsHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients")
		defer span.End()

		query := r.URL.Query().Get("q")
		page, pageSize := parsePagination(r)

		clients, err := svc.SearchClients(ctx, TenantIDFromContext(ctx), query, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if clients == nil {
			clients = []domain.Client{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"clients":   clients,
			"page":      page,
			"page_size": pageSize,
		})
	}
}
