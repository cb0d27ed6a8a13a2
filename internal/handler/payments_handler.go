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
// Payments — POST /v1/payments/quote, POST /v1/payments,
// POST /v1/payments/{paymentId}/annul, GET /v1/clients/{clientId}/payments
// ============================================================

// processPaymentRequest is the confirm payload: the intent plus the
// idempotency key minted when the cashier opened the quote.
type processPaymentRequest struct {
	domain.PaymentIntent
	IdempotencyKey string `json:"idempotencyKey"`
}

func quotePaymentHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payments/quote")
		defer span.End()

		var intent domain.PaymentIntent
		if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(
			attribute.String("kind", string(intent.Kind)),
			attribute.Int("loans", len(intent.LoanIDs)),
		)

		quote, err := svc.QuotePayment(ctx, TenantIDFromContext(ctx), intent)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, quote)
	}
}

func processPaymentHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payments")
		defer span.End()

		var req processPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.IdempotencyKey == "" {
			req.IdempotencyKey = r.Header.Get("Idempotency-Key")
		}
		span.SetAttributes(
			attribute.String("kind", string(req.Kind)),
			attribute.Int("loans", len(req.LoanIDs)),
		)

		resp, err := svc.ProcessPayment(ctx,
			TenantIDFromContext(ctx),
			OperatorIDFromContext(ctx),
			BranchIDFromContext(ctx),
			req.PaymentIntent,
			req.IdempotencyKey,
		)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func annulPaymentHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payments/{paymentId}/annul")
		defer span.End()

		paymentID := chi.URLParam(r, "paymentId")
		span.SetAttributes(attribute.String("payment.id", paymentID))

		var req domain.AnnulPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		payment, err := svc.AnnulPayment(ctx, TenantIDFromContext(ctx), OperatorIDFromContext(ctx), paymentID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, payment)
	}
}

func listClientPaymentsHandler(svc *service.PawnService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients/{clientId}/payments")
		defer span.End()

		clientID := chi.URLParam(r, "clientId")
		page, pageSize := parsePagination(r)

		payments, err := svc.ListClientPayments(ctx, TenantIDFromContext(ctx), clientID, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if payments == nil {
			payments = []domain.Payment{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"payments":  payments,
			"page":      page,
			"page_size": pageSize,
		})
	}
}
