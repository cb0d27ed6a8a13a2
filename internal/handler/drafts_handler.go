package handler

import (
	"io"
	"net/http"

	"github.com/valadez/empenos-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Contract drafts — opaque payloads parked between screens
// ============================================================

const maxDraftBytes = 64 * 1024

func saveDraftHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/drafts/{key}")
		defer span.End()

		key := chi.URLParam(r, "key")
		body, err := io.ReadAll(io.LimitReader(r.Body, maxDraftBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read request body")
			return
		}
		if len(body) == 0 {
			writeError(w, http.StatusBadRequest, "draft body is empty")
			return
		}
		if len(body) > maxDraftBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "draft exceeds size limit")
			return
		}

		if err := svc.SaveDraft(ctx, TenantIDFromContext(ctx), key, body); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key, "status": "saved"})
	}
}

func loadDraftHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/drafts/{key}")
		defer span.End()

		key := chi.URLParam(r, "key")
		value, err := svc.LoadDraft(ctx, TenantIDFromContext(ctx), key)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(value) //nolint:errcheck
	}
}

func clearDraftHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/drafts/{key}")
		defer span.End()

		key := chi.URLParam(r, "key")
		if err := svc.ClearDraft(ctx, TenantIDFromContext(ctx), key); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
