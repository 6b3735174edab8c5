// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

// Package main is the entry point for the AgriIntel360 server.
//
// AgriIntel360 is an authenticated analytics API for agricultural data
// across West Africa: crop production, market prices, yield predictions
// and advisory alerts, backed by a DuckDB analytics store and a BadgerDB
// credential store.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and config file (Koanf v2)
//  2. Analytics store: DuckDB with reference data seeding
//  3. Credential store: BadgerDB user records
//  4. Authentication: JWT manager and login lockout tracking
//  5. WebSocket hub: real-time alert and data-update broadcasts
//  6. Ingest consumer (optional): NATS JetStream event pipeline
//  7. HTTP server: REST API under /api/v1 plus /health and /metrics
//
// Long-running components run under a Suture supervisor tree so a crash
// in one layer restarts only that layer.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults.
//
// Required in production:
//   - JWT_SECRET: 32+ character secret for HS256 token signing
//
// Common settings:
//   - HTTP_PORT: listen port (default 8000)
//   - DUCKDB_PATH: analytics database file (default /data/agriintel.duckdb)
//   - USERS_PATH: BadgerDB directory for user records (default /data/users)
//   - INGEST_ENABLED=true, NATS_URL, NATS_EMBEDDED: event ingestion
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: stops
// accepting new connections, drains in-flight requests (10s timeout),
// then closes the ingest consumer and both stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SIAKOU/Agri-Intel/internal/api"
	"github.com/SIAKOU/Agri-Intel/internal/auth"
	"github.com/SIAKOU/Agri-Intel/internal/config"
	"github.com/SIAKOU/Agri-Intel/internal/database"
	"github.com/SIAKOU/Agri-Intel/internal/ingest"
	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/supervisor"
	"github.com/SIAKOU/Agri-Intel/internal/userstore"
	ws "github.com/SIAKOU/Agri-Intel/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings. Load validates
	// the merged result before returning.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("ingest_enabled", cfg.Ingest.Enabled).
		Msg("Starting AgriIntel360")

	// Analytics store (DuckDB).
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize analytics store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing analytics store")
		}
	}()

	// Credential store (BadgerDB).
	users, err := userstore.Open(cfg.Users.Path, cfg.Users.InMemory)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open user store")
	}
	defer func() {
		if err := users.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing user store")
		}
	}()

	// Context for graceful shutdown, canceled on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	lockout := auth.NewLockoutManager(auth.NewMemoryLockoutStore(), &auth.LockoutConfig{
		MaxAttempts:     cfg.Security.LockoutMaxAttempts,
		LockoutDuration: cfg.Security.LockoutDuration,
		CleanupInterval: 5 * time.Minute,
		Enabled:         true,
	})
	lockout.StartCleanupRoutine(ctx)

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}

	wsHub := ws.NewHub()

	handler := api.NewHandler(db, users, cfg, jwtManager, lockout, wsHub)
	router := api.NewRouter(handler, nil)

	// Supervisor tree. The slog logger bridges zerolog to slog for
	// sutureslog compatibility.
	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(supervisor.NewHubService(wsHub))

	if cfg.Ingest.Enabled {
		consumer := ingest.NewConsumer(cfg.Ingest, db, wsHub, handler)
		handler.SetIngestStatus(consumer)
		tree.AddMessagingService(consumer)
		logging.Info().
			Str("url", cfg.Ingest.URL).
			Bool("embedded", cfg.Ingest.EmbeddedServer).
			Msg("Ingest consumer enabled")
	} else {
		logging.Info().Msg("Ingest consumer disabled (INGEST_ENABLED=false)")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	tree.AddAPIService(supervisor.NewHTTPService(addr, router.SetupChi(), cfg.Server.Timeout, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
