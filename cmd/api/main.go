package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/oncopath/meningioma-decision-flow-backend/internal/api"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/cases"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/config"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/elicit"
	"github.com/oncopath/meningioma-decision-flow-backend/internal/store"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Case dataset ──────────────────────────────────────────────────────────
	data, err := cases.Load()
	if err != nil {
		return fmt.Errorf("cases: %w", err)
	}
	logger.Info("case dataset loaded", "cases", data.Len())

	// ── Audit store (optional) ────────────────────────────────────────────────
	var audit *store.Store
	if cfg.DatabaseURL != "" {
		pool, err := openDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		audit = store.New(pool)
		logger.Info("audit store connected")
	} else {
		logger.Info("audit store disabled (DATABASE_URL unset)")
	}

	// ── Elicitor ──────────────────────────────────────────────────────────────
	// Anthropic is primary. DeepSeek is the fallback when DEEPSEEK_API_KEY is
	// also set, and only service-level failures fall through to it.
	opts := elicit.Options{
		MaxTokens:       int64(cfg.MaxTokens),
		TreeMaxTokens:   int64(cfg.TreeMaxTokens),
		Temperature:     cfg.Temperature,
		TreeTemperature: cfg.TreeTemperature,
	}
	var elicitor elicit.Elicitor
	model := cfg.AnthropicModel
	switch {
	case cfg.AnthropicAPIKey != "" && cfg.DeepSeekAPIKey != "":
		primary := elicit.NewAnthropicElicitor(cfg.AnthropicAPIKey, cfg.AnthropicModel, opts, logger)
		secondary := elicit.NewDeepSeekElicitor(cfg.DeepSeekAPIKey, cfg.DeepSeekModel, opts, logger)
		elicitor = elicit.NewFallbackElicitor(primary, secondary, logger)
		logger.Info("elicit: using Anthropic with DeepSeek fallback")
	case cfg.AnthropicAPIKey != "":
		elicitor = elicit.NewAnthropicElicitor(cfg.AnthropicAPIKey, cfg.AnthropicModel, opts, logger)
		logger.Info("elicit: using Anthropic only")
	default:
		elicitor = elicit.NewDeepSeekElicitor(cfg.DeepSeekAPIKey, cfg.DeepSeekModel, opts, logger)
		model = cfg.DeepSeekModel
		logger.Info("elicit: using DeepSeek only")
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		data,
		elicitor,
		audit,
		api.Config{
			Env:            cfg.Env,
			Model:          model,
			ElicitTimeout:  cfg.ElicitTimeout,
			AllowedOrigins: cfg.AllowedOrigins,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // generous — elicitation calls can run long
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight elicitations up to 30 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// openDB opens the connection pool and verifies it is reachable. The server
// refuses to start with a misconfigured DATABASE_URL rather than failing on
// the first audit write.
func openDB(dsn string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	// Tune the connection pool.
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}
