// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/kakebo and cmd/kakebo-agent.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"kakebo/internal/config"
	"kakebo/internal/remote"
	"kakebo/internal/remote/api"
	"kakebo/internal/remote/memory"
	"kakebo/internal/storage"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the default logger.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the local store at the configured path.
// Returns the store or exits the process on failure.
func OpenStore(logger *slog.Logger, dbPath string) *storage.Store {
	store, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("Failed to open local store", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return store
}

// NewGateway builds the remote gateway from the configuration. Without
// a remote URL the client runs against the in-memory gateway: fully
// local, every mutation stays queued for a later real sync.
func NewGateway(logger *slog.Logger, cfg *config.Config) remote.Gateway {
	if cfg.RemoteBaseURL == "" {
		logger.Info("No remote configured, running local-only")
		return memory.New()
	}

	client, err := api.New(api.Config{
		BaseURL: cfg.RemoteBaseURL,
		Token:   api.StaticToken(cfg.APIToken),
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		logger.Error("Failed to build remote gateway", "error", err)
		os.Exit(1)
	}
	return client
}
