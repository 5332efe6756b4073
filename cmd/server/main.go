package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cashflowpro/cashflowpro/internal/activity"
	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/featureflags"
	"github.com/cashflowpro/cashflowpro/internal/handler"
	"github.com/cashflowpro/cashflowpro/internal/infrastructure/objectstore"
	infraredis "github.com/cashflowpro/cashflowpro/internal/infrastructure/redis"
	"github.com/cashflowpro/cashflowpro/internal/observability/metrics"
	"github.com/cashflowpro/cashflowpro/internal/observability/tracing"
	"github.com/cashflowpro/cashflowpro/internal/reliability/retry"
	"github.com/cashflowpro/cashflowpro/internal/repository"
	"github.com/cashflowpro/cashflowpro/internal/security"
	"github.com/cashflowpro/cashflowpro/internal/security/audit"
	"github.com/cashflowpro/cashflowpro/internal/security/auth"
	"github.com/cashflowpro/cashflowpro/internal/security/middleware"
	"github.com/cashflowpro/cashflowpro/internal/security/ratelimit"
	"github.com/cashflowpro/cashflowpro/internal/service"
	"github.com/cashflowpro/cashflowpro/internal/worker"
	"github.com/cashflowpro/cashflowpro/pkg/config"
	"github.com/cashflowpro/cashflowpro/pkg/database"
	"github.com/cashflowpro/cashflowpro/pkg/logging"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logging.New(cfg.LogLevel, cfg.Environment)
	log.Info("starting CashflowPro server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "cashflowpro", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to PostgreSQL, waiting for it to come up
	pool, err := retry.Do(ctx, retry.StartupConfig(), log, "connect postgres",
		func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, &database.Config{
				Host:     cfg.DatabaseHost,
				Port:     cfg.DatabasePort,
				User:     cfg.DatabaseUser,
				Password: cfg.DatabasePassword,
				Database: cfg.DatabaseName,
				SSLMode:  cfg.DatabaseSSLMode,
			}, log)
		})
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool.GetDB()); err != nil {
		log.Error("failed to apply schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Optional Redis; the summary cache runs in-process without it
	var redisClient *infraredis.Client
	var summaryCache domain.SummaryCache
	if cfg.RedisURL != "" {
		redisClient, err = retry.Do(ctx, retry.StartupConfig(), log, "connect redis",
			func(context.Context) (*infraredis.Client, error) {
				return infraredis.NewClient(cfg.RedisURL)
			})
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		summaryCache = repository.NewRedisSummaryCache(redisClient, cfg.SummaryCacheTTL, log)
	} else {
		log.Info("REDIS_URL not set, using in-process summary cache")
		summaryCache = repository.NewMemorySummaryCache(cfg.SummaryCacheTTL)
	}

	// 6. Optional object store for report export
	var reportService *service.ReportService
	if cfg.ReportStoreEndpoint != "" {
		store, err := objectstore.New(ctx, cfg.ReportStoreEndpoint, cfg.ReportStoreBucket,
			cfg.ReportStoreAccessKey, cfg.ReportStoreSecretKey, cfg.ReportStoreUseSSL)
		if err != nil {
			log.Error("failed to connect to object store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		reportService = service.NewReportService(store, log)
	} else {
		log.Info("REPORT_STORE_ENDPOINT not set, report export disabled")
	}

	// 7. Repositories
	userRepo := repository.NewPostgresUserRepository(pool.GetDB(), log)
	businessRepo := repository.NewPostgresBusinessRepository(pool.GetDB(), log)
	analysisRepo := repository.NewPostgresAnalysisRepository(pool.GetDB(), log)

	// 8. Live activity hub and services
	hub := activity.NewHub()
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "cashflowpro")

	authService := service.NewAuthService(userRepo, tokenManager, cfg.TokenTTL, log)
	businessService := service.NewBusinessService(businessRepo, summaryCache, hub, cfg.PlanLimits, log)
	analysisService := service.NewAnalysisService(analysisRepo, businessRepo, reportService, summaryCache, hub, log)
	dashboardService := service.NewDashboardService(businessRepo, summaryCache, log)

	// 9. Security components
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	auditLogger := audit.NewLogger(log)
	authz := security.NewAuthorizationService(log)

	// 10. Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	businessHandler := handler.NewBusinessHandler(businessService, analysisService, auditLogger, log)
	analysisHandler := handler.NewAnalysisHandler(analysisService, reportService, auditLogger, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)
	activityHandler := handler.NewActivityHandler(hub, tokenManager, cfg.CORSAllowedOrigins, log)
	adminHandler := handler.NewAdminHandler(authService, authz, auditLogger, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	// 11. Routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	mux.HandleFunc("GET /api/businesses", businessHandler.List)
	mux.HandleFunc("POST /api/businesses", businessHandler.Create)
	mux.HandleFunc("GET /api/businesses/{id}", businessHandler.Get)
	mux.HandleFunc("PUT /api/businesses/{id}", businessHandler.Update)
	mux.HandleFunc("DELETE /api/businesses/{id}", businessHandler.Delete)
	mux.HandleFunc("GET /api/businesses/{id}/analyses", businessHandler.Analyses)

	mux.HandleFunc("GET /api/analyses/{id}", analysisHandler.Get)
	mux.HandleFunc("POST /api/analyses/{id}/run", analysisHandler.Run)
	mux.HandleFunc("PATCH /api/analyses/{id}/status", analysisHandler.SetStatus)
	mux.HandleFunc("GET /api/analyses/{id}/report", analysisHandler.Report)

	mux.HandleFunc("GET /api/dashboard/summary", dashboardHandler.Summary)
	mux.HandleFunc("GET /api/dashboard/activity", dashboardHandler.Activity)

	mux.HandleFunc("GET /api/admin/users", adminHandler.ListUsers)

	mux.Handle("GET /ws/activity", activityHandler)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Live)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	instrumented := otelhttp.NewHandler(metrics.HTTPMetricsMiddleware(handlerWithCORS), "http.server")

	// Chain middleware: request ID -> JWT -> audit -> rate limit. JWT
	// runs first so the audit trail and the per-user limiter see the
	// resolved identity.
	rootHandler := withRequestID(
		middleware.JWTMiddleware(tokenManager, log)(
			middleware.AuditMiddleware(auditLogger)(
				middleware.RateLimitMiddleware(rateLimiter, log)(instrumented),
			),
		),
		log,
	)

	// 12. Demo seed behind a feature flag
	if featureflags.Enabled("demo_seed") {
		if err := seedDemoData(ctx, log, userRepo, businessRepo, analysisRepo); err != nil {
			log.Error("demo seed failed", slog.String("error", err.Error()))
		}
	}

	// 13. Background gauge refresh
	statsWorker := worker.NewStatsWorker(businessRepo, analysisRepo, log, cfg.StatsInterval)
	go statsWorker.Start(ctx)

	// 14. HTTP server with graceful shutdown
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitRequests),
		slog.Duration("rate_limit_window", cfg.RateLimitWindow),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop background workers
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == origin {
			return true
		}
	}
	return false
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))

		log.Debug("request handled",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
