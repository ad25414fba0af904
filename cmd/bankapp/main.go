package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/bankapp-go/internal/config"
	"github.com/boddenberg/bankapp-go/internal/handler"
	"github.com/boddenberg/bankapp-go/internal/infra/cache"
	"github.com/boddenberg/bankapp-go/internal/infra/client"
	"github.com/boddenberg/bankapp-go/internal/infra/observability"
	"github.com/boddenberg/bankapp-go/internal/infra/resilience"
	"github.com/boddenberg/bankapp-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("seed_demo_data", cfg.SeedDemoData),
		zap.Duration("idempotency_ttl", cfg.IdempotencyTTL),
		zap.Bool("audit_forwarding", cfg.AuditForwardURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, "bankapp")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Services ---
	banking := service.NewBanking(logger)
	if cfg.SeedDemoData {
		if err := service.SeedDemoData(banking); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
		logger.Info("demo data seeded", zap.Int("clients", len(banking.Clients())))
	}
	audit := service.NewAuditService(metrics, logger)
	ops := service.NewOperations(audit, metrics, logger)

	// --- Idempotency cache ---
	idempotencyCache := cache.New[*handler.CachedResponse](cfg.IdempotencyTTL)
	defer idempotencyCache.Close()

	// --- Audit forwarding ---
	var dispatcher *service.AuditDispatcher
	if cfg.AuditForwardURL != "" {
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		cb := resilience.NewCircuitBreaker("audit-collector")
		forwarder := client.NewAuditForwarder(httpClient, cfg.AuditForwardURL, cb, resilienceCfg)

		dispatcher = service.NewAuditDispatcher(
			forwarder,
			cfg.AuditForwardQueue,
			cfg.AuditForwardBatchSize,
			cfg.AuditForwardInterval,
			metrics,
			logger,
		)
		audit.Subscribe(dispatcher.Enqueue)
		logger.Info("audit forwarding enabled", zap.String("url", cfg.AuditForwardURL))
	}

	// --- Router ---
	router := handler.NewRouter(handler.Dependencies{
		Banking:            banking,
		Operations:         ops,
		Audit:              audit,
		Idempotency:        idempotencyCache,
		Metrics:            metrics,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if dispatcher != nil {
		g.Go(func() error {
			return dispatcher.Run(gctx)
		})
	}

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("server stopped")
}
