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
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jthurman/localhive/internal/auth"
	"github.com/jthurman/localhive/internal/background"
	"github.com/jthurman/localhive/internal/config"
	"github.com/jthurman/localhive/internal/database"
	"github.com/jthurman/localhive/internal/handlers"
	middlewareCustom "github.com/jthurman/localhive/internal/middleware"
	"github.com/jthurman/localhive/internal/ratelimit"
	"github.com/jthurman/localhive/internal/repositories"
	"github.com/jthurman/localhive/internal/routes"
	"github.com/jthurman/localhive/internal/services"
	pkghttp "github.com/jthurman/localhive/pkg/http"
	pkglogger "github.com/jthurman/localhive/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Run migrations before opening the pool
	if cfg.Database.RunMigrations {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		if err := database.Migrate(migrateCtx, &cfg.Database); err != nil {
			cancel()
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
		cancel()
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	challengeRepo := repositories.NewLoginChallengeRepository(db)

	// Initialize security services
	auditLogger := pkglogger.NewAuditLogger(logger)

	sessionManager := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionExpiry)

	totpManager, err := auth.NewTOTPManager(cfg.Auth.TOTPEncryptionKey, cfg.Auth.TOTPIssuer)
	if err != nil {
		logger.Error("failed to initialize totp manager", slog.Any("error", err))
		os.Exit(1)
	}

	// Login guard: in-memory IP tracker backed by the durable attempt ledger
	ipTracker := ratelimit.NewMemoryTracker(cfg.Auth.IPMaxFailures, cfg.Auth.IPWindow)
	guard := services.NewRateLimitService(ipTracker, attemptRepo, services.RateLimitConfig{
		EmailMaxFailures: cfg.Auth.EmailMaxFailures,
		EmailWindow:      cfg.Auth.EmailWindow,
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  cfg.Auth.LockoutDuration,
	}, logger)

	// Lockout notices via AWS SES when email is configured
	var notifier services.LockoutNotifier
	if cfg.Email.Enabled {
		sesNotifier, err := services.NewAWSSESNotifier(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	} else {
		notifier = services.NewNoopNotifier(logger)
	}

	// Initialize services
	authService := services.NewAuthService(
		userRepo,
		challengeRepo,
		guard,
		sessionManager,
		totpManager,
		notifier,
		logger,
		auditLogger,
		cfg.Auth.ChallengeTTL,
	)
	totpService := services.NewTOTPService(userRepo, totpManager, logger, auditLogger)

	// Initialize handlers
	cookieCfg := auth.CookieConfig{
		Domain: cfg.Auth.CookieDomain,
		Secure: cfg.Server.Env == "production",
	}
	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(authService, ipConfig, cookieCfg, cfg.Auth.SessionExpiry)
	totpHandler := handlers.NewTOTPHandler(totpService)
	healthHandler := handlers.NewHealthHandler(db)

	// Maintenance loop prunes challenges, old attempts, and idle IP buckets
	maintenance := background.NewMaintenanceManager(
		challengeRepo,
		attemptRepo,
		guard,
		logger,
		cfg.Auth.CleanupInterval,
		cfg.Auth.AttemptRetention,
	)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env, cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(cfg.Server.Env))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, totpHandler, healthHandler, sessionManager)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start maintenance task
	maintenanceCtx, maintenanceCancel := context.WithCancel(context.Background())
	defer maintenanceCancel()

	go maintenance.Start(maintenanceCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	maintenanceCancel()
	maintenance.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
