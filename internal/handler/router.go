package handler

import (
	"net/http"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
	"github.com/valadez/empenos-api/internal/infra/observability"
	"github.com/valadez/empenos-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Everything under /v1 except /v1/auth/login and /v1/auth/refresh requires
// a valid access token; /v1/admin additionally requires the sysadmin role.
func NewRouter(svc *service.PawnService, authSvc *service.AuthService, adminSvc *service.AdminService, metrics *observability.Metrics, logger *zap.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(adminSvc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Autenticación (public)
		// POST /v1/auth/login
		// POST /v1/auth/refresh
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", loginHandler(authSvc, logger))
			r.Post("/refresh", refreshHandler(authSvc, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(authSvc, logger))
				r.Post("/logout", logoutHandler(authSvc, logger))
				r.Put("/password", changePasswordHandler(authSvc, logger))
			})
		})

		// Everything below is tenant-scoped and requires a token.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))

			// =============================================
			// Empeños (loans)
			// =============================================
			r.Post("/loans", originateLoanHandler(svc, logger))
			r.Get("/loans", listLoansHandler(svc, logger))
			r.Get("/loans/{loanId}", getLoanHandler(svc, logger))
			r.Get("/loans/{loanId}/schedule", loanScheduleHandler(svc, logger))
			r.Get("/clients/{clientId}/loans", listClientLoansHandler(svc, logger))

			// =============================================
			// Pagos (quote & process)
			// =============================================
			r.Post("/payments/quote", quotePaymentHandler(svc, logger))
			r.Post("/payments", processPaymentHandler(svc, logger))
			r.Post("/payments/{paymentId}/annul", annulPaymentHandler(svc, logger))
			r.Get("/clients/{clientId}/payments", listClientPaymentsHandler(svc, logger))

			// =============================================
			// Cajas (cash drawers)
			// =============================================
			r.Post("/drawers/open", openDrawerHandler(svc, logger))
			r.Get("/drawers/current", currentDrawerHandler(svc, logger))
			r.Post("/drawers/{drawerId}/close", closeDrawerHandler(svc, logger))
			r.Post("/drawers/{drawerId}/movements", drawerMovementHandler(svc, logger))
			r.Get("/drawers/{drawerId}/summary", drawerSummaryHandler(svc, logger))

			// =============================================
			// Clientes
			// =============================================
			r.Post("/clients", createClientHandler(svc, logger))
			r.Get("/clients", searchClientsHandler(svc, logger))
			r.Get("/clients/{clientId}", getClientHandler(svc, logger))
			r.Put("/clients/{clientId}", updateClientHandler(svc, logger))

			// =============================================
			// Inversionistas y contratos
			// =============================================
			r.Post("/investors", createInvestorHandler(svc, logger))
			r.Get("/investors", listInvestorsHandler(svc, logger))
			r.Get("/investors/{investorId}", getInvestorHandler(svc, logger))
			r.Post("/investors/{investorId}/contracts", createContractHandler(svc, logger))
			r.Get("/investors/{investorId}/contracts", listContractsHandler(svc, logger))
			r.Get("/investors/{investorId}/contracts/{contractId}/yield", contractYieldHandler(svc, logger))

			// =============================================
			// Borradores (contract drafts)
			// =============================================
			r.Put("/drafts/{key}", saveDraftHandler(svc, logger))
			r.Get("/drafts/{key}", loadDraftHandler(svc, logger))
			r.Delete("/drafts/{key}", clearDraftHandler(svc, logger))

			// =============================================
			// Métricas operativas
			// =============================================
			r.Get("/metrics/ops", opsMetricsHandler(metrics))

			// =============================================
			// Administración de la plataforma (sysadmin)
			// =============================================
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(logger, "sysadmin"))
				r.Post("/tenants", provisionTenantHandler(adminSvc, logger))
				r.Get("/tenants", listTenantsHandler(adminSvc, logger))
				r.Post("/tenants/{tenantId}/suspend", suspendTenantHandler(adminSvc, logger))
				r.Post("/tenants/{tenantId}/activate", activateTenantHandler(adminSvc, logger))
			})
		})
	})

	return r
}

// ============================================================
// Health & metrics
// ============================================================

func healthzHandler(adminSvc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "empenos-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if adminSvc != nil {
			start := time.Now()
			_, err := adminSvc.ListTenants(ctx, 1, 1)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func opsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetOpsSnapshot())
	}
}
