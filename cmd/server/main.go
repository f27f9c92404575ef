// Package main implements the entry point for the Cohort API server,
// which deploys surveys against audiences of simulated respondents and
// exposes polling endpoints for batch task progress.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/cohort-api/internal/api"
	"github.com/phrazzld/cohort-api/internal/batch"
	"github.com/phrazzld/cohort-api/internal/config"
	"github.com/phrazzld/cohort-api/internal/platform/gemini"
	"github.com/phrazzld/cohort-api/internal/platform/logger"
	"github.com/phrazzld/cohort-api/internal/retry"
	"github.com/phrazzld/cohort-api/internal/service"
	"github.com/phrazzld/cohort-api/internal/taskreg"
)

// shutdownGrace bounds how long in-flight requests get to finish on
// shutdown.
const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("cohort-api: %v", err)
	}
}

// run loads configuration, wires the application together and serves
// until interrupted.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_concurrency", cfg.Orchestration.MaxConcurrency,
		"batch_size", cfg.Orchestration.BatchSize)

	// Task registry plus its cleanup loop. The registry instance is
	// injected everywhere; there is no ambient global.
	registry := taskreg.New(taskreg.Config{
		RetentionWindow: cfg.Registry.RetentionWindow(),
		CleanupInterval: cfg.Registry.CleanupInterval(),
	}, appLogger)
	go registry.Run(ctx)

	executor := batch.New(batch.Config{
		MaxConcurrency: cfg.Orchestration.MaxConcurrency,
		BatchSize:      cfg.Orchestration.BatchSize,
	}, appLogger)

	retrier := retry.NewExecutor(retry.Policy{
		MaxRetries:         cfg.Orchestration.MaxRetries,
		BaseDelay:          cfg.Orchestration.BaseDelay(),
		ExponentialBackoff: cfg.Orchestration.ExponentialBackoff,
	}, appLogger)

	responder, err := gemini.NewResponder(ctx, appLogger, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create Gemini responder: %w", err)
	}

	deployments := service.NewDeploymentService(
		ctx,
		registry,
		executor,
		retrier,
		responder,
		service.DeploymentConfig{DeployTimeout: cfg.Orchestration.DeployTimeout()},
		appLogger,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(deployments),
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", "error", err)
	}

	// Background deployments were cancelled with ctx; wait for their
	// goroutines to observe it.
	deployments.Wait()

	return nil
}
