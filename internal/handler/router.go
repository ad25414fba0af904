package handler

import (
	"net/http"

	"github.com/boddenberg/bankapp-go/internal/infra/observability"
	"github.com/boddenberg/bankapp-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Dependencies are the services the router exposes.
type Dependencies struct {
	Banking     *service.Banking
	Operations  *service.Operations
	Audit       *service.AuditService
	Idempotency IdempotencyStore
	Metrics     *observability.Metrics
	Logger      *zap.Logger

	CORSAllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Dependencies) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", idempotencyHeader, "traceparent"},
		ExposedHeaders: []string{"X-Idempotent-Replay", "X-Request-Id"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Banking))
	r.Get("/readyz", readyzHandler(d.Banking, d.Operations, d.Audit))
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if d.Banking == nil || d.Operations == nil || d.Audit == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "banking services not configured")
			}))
			return
		}
		idempotent := Idempotency(d.Idempotency, d.Metrics, logger)

		// Clients
		r.Get("/clients", listClientsHandler(d.Banking))
		r.Post("/clients", createClientHandler(d.Banking, logger))
		r.Route("/clients/{name}", func(r chi.Router) {
			r.Get("/", getClientHandler(d.Banking, logger))
			r.Delete("/", deleteClientHandler(d.Banking, logger))
			r.Post("/accounts", openAccountHandler(d.Banking, logger))
			r.Put("/active-account", setActiveAccountHandler(d.Banking, logger))

			// Operations on the client's active account
			byClient := clientTarget(d.Banking)
			r.With(idempotent).Post("/deposit", depositHandler(d.Operations, byClient, logger))
			r.With(idempotent).Post("/withdraw", withdrawHandler(d.Operations, byClient, logger))
			r.Get("/balance", balanceHandler(d.Operations, byClient, logger))

			// Operations on a specific account
			byAccount := accountTarget(d.Banking)
			r.With(idempotent).Post("/accounts/{accountId}/deposit", depositHandler(d.Operations, byAccount, logger))
			r.With(idempotent).Post("/accounts/{accountId}/withdraw", withdrawHandler(d.Operations, byAccount, logger))
			r.Get("/accounts/{accountId}/balance", balanceHandler(d.Operations, byAccount, logger))
		})

		// Transfers
		r.With(idempotent).Post("/transfers", transferHandler(d.Banking, d.Operations, logger))

		// Audit trail
		r.Get("/audit/events", listAuditEventsHandler(d.Audit, logger))

		// Metrics
		r.Get("/metrics/operations", operationsMetricsHandler(d.Metrics))
	})

	return r
}

func healthzHandler(banking *service.Banking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"status": "ok"}
		if banking != nil {
			resp["clients"] = len(banking.Clients())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func readyzHandler(banking *service.Banking, ops *service.Operations, audit *service.AuditService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if banking == nil || ops == nil || audit == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func operationsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
