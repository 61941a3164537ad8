package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/bkaraoglu/stajportal/internal/auth"
	"github.com/bkaraoglu/stajportal/internal/background"
	"github.com/bkaraoglu/stajportal/internal/config"
	"github.com/bkaraoglu/stajportal/internal/database"
	"github.com/bkaraoglu/stajportal/internal/handlers"
	portalmiddleware "github.com/bkaraoglu/stajportal/internal/middleware"
	"github.com/bkaraoglu/stajportal/internal/ratelimit"
	"github.com/bkaraoglu/stajportal/internal/repositories"
	"github.com/bkaraoglu/stajportal/internal/routes"
	"github.com/bkaraoglu/stajportal/internal/services"
	"github.com/bkaraoglu/stajportal/internal/upload"
	pkghttp "github.com/bkaraoglu/stajportal/pkg/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	attemptRepo := repositories.NewPinAttemptRepository(db)
	principalRepo := repositories.NewPrincipalRepository(db)
	eventRepo := repositories.NewSecurityEventRepository(db)

	// Lockout notifier (optional)
	var notifier services.LockoutNotifier
	if cfg.Notify.Enabled {
		sesNotifier, err := services.NewSESLockoutNotifier(
			cfg.Notify.AWSRegion,
			cfg.Notify.FromAddress,
			cfg.Notify.CoordinatorEmail,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize lockout notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	// PIN security core
	pinSecurity := services.NewPinSecurityService(attemptRepo, principalRepo, services.PinSecurityConfig{
		MaxAttempts:      cfg.Security.MaxAttempts,
		LockDuration:     cfg.Security.LockDuration,
		AttemptWindow:    cfg.Security.AttemptWindow,
		AttemptRetention: cfg.Security.AttemptRetention,
	}, notifier, logger)

	auditService := services.NewAuditService(eventRepo, cfg.Security.PersistAuditLog, logger)

	// In-memory analysis throttling
	limiter := ratelimit.NewLimiter(ratelimit.Presets{
		AnalysisPerHour:       cfg.RateLimit.AnalysisPerHour,
		BatchAnalysisPerHour:  cfg.RateLimit.BatchAnalysisPerHour,
		FailedAttemptsPerHour: cfg.RateLimit.FailedAttemptsPerHour,
	})

	// Upload validation
	fileValidator := upload.NewValidator(cfg.Upload.MaxFileSize)
	batchValidator := upload.NewBatchValidator(cfg.Upload.MaxBatchSize)

	// Session tokens
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenExpiry)

	// Handlers
	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(pinSecurity, principalRepo, limiter, tokenManager, auditService, ipConfig)
	dekontHandler := handlers.NewDekontHandler(limiter, fileValidator, batchValidator, auditService, cfg.Upload.MaxFileSize)
	adminHandler := handlers.NewAdminHandler(pinSecurity, auditService)

	// Housekeeping: ledger retention purge + rate-limit bucket sweep
	cleanupManager := background.NewCleanupManager(attemptRepo, limiter, logger,
		cfg.Auth.CleanupInterval, cfg.RateLimit.SweepInterval)

	// Router
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(portalmiddleware.RequestLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, dekontHandler, adminHandler, tokenManager)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
