// Package cli provides common CLI initialization utilities shared by
// cmd/budgetpal and cmd/schedule-worker.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetpal/internal/config"
	applog "budgetpal/internal/log"
)

// SetupLogger installs a text handler at the given level as the slog default
// and returns an app logger for component.
func SetupLogger(level, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: component,
		Output:    os.Stdout,
	})
	slog.SetDefault(logger.Logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. A missing file is
// not an error.
func LoadEnvFile() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function restores default signal handling.
func GracefulShutdown(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", "cause", context.Cause(ctx))
	}()
	return ctx, stop
}

// ShutdownContext bounds the cleanup that follows cancellation of the run context.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
