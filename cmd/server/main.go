package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	interiorchat "github.com/set-night/interiorchat"
	"github.com/set-night/interiorchat/internal/config"
	"github.com/set-night/interiorchat/internal/handler"
	"github.com/set-night/interiorchat/internal/middleware"
	"github.com/set-night/interiorchat/internal/repository"
	"github.com/set-night/interiorchat/internal/service"
	"github.com/set-night/interiorchat/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Transcript store: Postgres when configured, memory otherwise
	var store service.TranscriptStore
	if cfg.DatabaseURL != "" {
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		migrationsFS, err := fs.Sub(interiorchat.MigrationsFS, "migrations")
		if err != nil {
			slog.Error("failed to load embedded migrations", "error", err)
			os.Exit(1)
		}
		if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		store = repository.NewPostgresTranscriptStore(pool)
	} else {
		store = repository.NewMemoryTranscriptStore()
	}

	// Initialize telegram logger
	tgLogger, err := telegram.NewTelegramLogger(cfg)
	if err != nil {
		slog.Error("failed to create telegram logger", "error", err)
		os.Exit(1)
	}
	var reporter service.ErrorReporter
	if tgLogger != nil {
		reporter = tgLogger
	}

	// Initialize services
	backend := service.NewBackendClient(cfg.BackendURL, cfg.UpstreamTimeout)
	sessionService := service.NewSessionService(store)
	quickQuestions := service.NewQuickQuestionsService(backend, cfg.QuickQuestionsTimeout, cfg.QuickQuestionsTTL)
	relay := service.NewChatRelay(backend, sessionService, reporter)
	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		slog.Error("invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, proxies)

	// Initialize handler
	h := handler.New(handler.Deps{
		Cfg:            cfg,
		Relay:          relay,
		QuickQuestions: quickQuestions,
		SessionService: sessionService,
		Limiter:        limiter,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		ReadTimeout:       config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}

	// Start housekeeping goroutine
	go func() {
		ticker := time.NewTicker(config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := sessionService.ExpireIdle(context.Background(), cfg.TranscriptTTL)
				if err != nil {
					slog.Error("expire idle sessions", "error", err)
				} else if n > 0 {
					slog.Info("expired idle sessions", "count", n)
				}
				if evicted := limiter.Cleanup(config.LimiterIdleTTL); evicted > 0 {
					slog.Debug("evicted idle rate limiters", "count", evicted)
				}
			}
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", srv.Addr,
			"backend_url", cfg.BackendURL,
			"transcript_store", sessionService.StoreName(),
			"telegram_logging", cfg.TelegramLoggingEnabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	slog.Info("server stopped gracefully")
}
