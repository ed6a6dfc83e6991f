// Package main is the entry point for the SCIM attribute sync service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haldin/scim_attribute_sync/internal/api"
	"github.com/haldin/scim_attribute_sync/internal/config"
	"github.com/haldin/scim_attribute_sync/internal/extract"
	"github.com/haldin/scim_attribute_sync/internal/receiver"
	"github.com/haldin/scim_attribute_sync/internal/storage"
	"github.com/haldin/scim_attribute_sync/internal/storage/snapshots"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfgPath := getEnv("SAS_CONFIG", "config/config.yaml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("could not load config", "path", cfgPath, "err", err)
			os.Exit(1)
		}
		cfg = config.Default()
	}

	// Env overrides for the common deployment knobs.
	cfg.WebhookAddr = getEnv("SAS_WEBHOOK_ADDR", cfg.WebhookAddr)
	cfg.APIAddr = getEnv("SAS_API_ADDR", cfg.APIAddr)
	cfg.LogLevel = getEnv("SAS_LOG", cfg.LogLevel)
	cfg.Storage.Backend = getEnv("SAS_STORAGE", cfg.Storage.Backend)

	logger, err := setupLogging(cfg.LogLevel)
	if err != nil {
		slog.Error("could not init logging", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.NewStorage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("could not init storage", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing storage failed", "err", err)
		}
	}()

	snaps, err := snapshots.New(snapshots.Config{
		Dir:          cfg.Snapshots.Dir,
		MaxSnapshots: cfg.Snapshots.MaxSnapshots,
	})
	if err != nil {
		logger.Error("could not init snapshot store", "err", err)
		os.Exit(1)
	}

	extractor := extract.New(extract.Config{
		IgnoredCoreFields:  ignoredFields(cfg),
		VerboseDirectories: cfg.VerboseDirectories,
		Reporter:           extract.NewSlogReporter(logger),
	})

	webhook := receiver.New(cfg.WebhookAddr, store, extractor, logger)
	apiServer := api.NewServer(cfg.APIAddr, store, snaps, logger)

	errChan := make(chan error, 2)

	go func() {
		logger.Info("starting webhook receiver", "addr", cfg.WebhookAddr)
		if err := webhook.Start(); err != nil {
			errChan <- fmt.Errorf("webhook receiver error: %w", err)
		}
	}()

	go func() {
		logger.Info("starting API server", "addr", cfg.APIAddr)
		if err := apiServer.Start(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	logger.Info("ready",
		"webhook", fmt.Sprintf("http://%s/webhooks/directory-sync/{directoryID}", cfg.WebhookAddr),
		"api", fmt.Sprintf("http://%s/api/v1", cfg.APIAddr),
		"storage", cfg.Storage.Backend,
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("server error", "err", err)
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := webhook.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutting down webhook receiver failed", "err", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutting down API server failed", "err", err)
	}

	logger.Info("shutdown complete")
}

func setupLogging(level string) (*slog.Logger, error) {
	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(level))
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, err
}

// ignoredFields returns the config override, or nil to use the built-in
// core ignore list.
func ignoredFields(cfg *config.Config) []string {
	if len(cfg.IgnoredCoreFields) == 0 {
		return nil
	}
	return cfg.IgnoredCoreFields
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
