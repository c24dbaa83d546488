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

	"github.com/tickethub/panel/internal/auth"
	"github.com/tickethub/panel/internal/background"
	"github.com/tickethub/panel/internal/bot"
	"github.com/tickethub/panel/internal/config"
	"github.com/tickethub/panel/internal/database"
	"github.com/tickethub/panel/internal/handlers"
	middlewareCustom "github.com/tickethub/panel/internal/middleware"
	"github.com/tickethub/panel/internal/models"
	"github.com/tickethub/panel/internal/repositories"
	"github.com/tickethub/panel/internal/routes"
	"github.com/tickethub/panel/internal/services"
	pkghttp "github.com/tickethub/panel/pkg/http"
	pkglogger "github.com/tickethub/panel/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)

	// Initialize cleanup manager; stale attempt records are kept for one
	// lockout window past expiry
	cleanupManager := background.NewCleanupManager(
		attemptRepo, logger, cfg.Auth.CleanupInterval, cfg.Auth.LockoutDuration)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	loginService := services.NewLoginService(
		accountRepo, attemptRepo, tokenManager,
		cfg.Auth.MaxFailures, cfg.Auth.LockoutDuration,
		logger, auditLogger,
	)
	masterGate := services.NewMasterSecretGate(
		cfg.Auth.MasterPassword, cfg.Auth.MasterPasswordHash, cfg.Bot.OwnerID,
		accountRepo, logger, auditLogger,
	)
	credentialService := services.NewCredentialService(accountRepo, logger, auditLogger)

	// External session controller with its command set
	registry := bot.NewRegistry()
	registry.Register(&bot.HelpCommand{Settings: settingsRepo})
	registry.Register(&bot.PasswordGenerateCommand{
		OwnerID:     cfg.Bot.OwnerID,
		Gate:        masterGate,
		Credentials: credentialService,
	})

	session := bot.NewSession(bot.NewDiscordDialer(logger), registry, settingsRepo, logger)

	// Credentials minted over HTTP or slash command are DM-delivered
	// through the live session, best-effort
	credentialService.SetDeliverer(session)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(loginService, ipConfig, logger)
	botHandler := handlers.NewBotHandler(session, masterGate, settingsRepo, cfg.Bot, logger)
	accountHandler := handlers.NewAccountHandler(
		accountRepo, credentialService, masterGate, cfg.Bot.OwnerID, logger, auditLogger)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, logger)

	// Bootstrap the owner account and the settings row
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := bootstrap(bootCtx, cfg, accountRepo, settingsRepo); err != nil {
		logger.Error("bootstrap failed", slog.Any("error", err))
		bootCancel()
		os.Exit(1)
	}
	bootCancel()

	// Autostart the bot when connect credentials exist. A failed start
	// is logged and retried manually from the panel, never fatal.
	if cfg.Bot.Token != "" && cfg.Bot.ClientID != "" {
		startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := session.Start(startCtx, cfg.Bot.Token, cfg.Bot.ClientID); err != nil {
			logger.Error("bot autostart failed, start it from the panel", slog.Any("error", err))
		}
		startCancel()
	} else {
		logger.Info("no bot connect credentials configured, skipping autostart")
	}

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	router.Route("/api", func(r chi.Router) {
		routes.RegisterRoutes(r, authHandler, botHandler, accountHandler, settingsHandler, tokenManager)
	})

	// Health check with database
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

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

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

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop HTTP first so no control request races the session teardown
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	if err := session.Stop(shutdownCtx); err != nil {
		logger.Error("session stop error", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
}

// bootstrap upserts the owner account and seeds the settings row so
// the panel is operable from the first boot.
func bootstrap(
	ctx context.Context,
	cfg *config.Config,
	accountRepo *repositories.AccountRepository,
	settingsRepo *repositories.SettingsRepository,
) error {
	if _, err := accountRepo.Upsert(ctx, cfg.Bot.OwnerID, models.RoleOwner, "system"); err != nil {
		return err
	}
	return settingsRepo.Seed(ctx, os.Getenv("DEFAULT_IMAGE_URL"))
}
