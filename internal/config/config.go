// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

// Package config provides layered configuration loading for AgriIntel360.
package config

import (
	"time"
)

// Config holds all application configuration loaded from environment variables
// and an optional YAML config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from
// multiple goroutines.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Users    UsersConfig    `koanf:"users"`
	Security SecurityConfig `koanf:"security"`
	Ingest   IngestConfig   `koanf:"ingest"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8000)
//   - HTTP_TIMEOUT: Request timeout (default: 30s)
//   - ENVIRONMENT: "development" or "production"
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings for the analytics store.
//
// The analytics store holds reference data (countries, crops) and the
// append-only record tables (production, prices, predictions, alerts).
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: /data/agriintel.duckdb)
//   - DUCKDB_MAX_MEMORY: Memory limit (default: 2GB)
//   - DUCKDB_THREADS: Worker threads, 0 = NumCPU (default: 0)
//   - SEED_REFERENCE_DATA: Seed built-in countries/crops on first start
type DatabaseConfig struct {
	Path              string `koanf:"path"`
	MaxMemory         string `koanf:"max_memory"`
	Threads           int    `koanf:"threads"`
	SeedReferenceData bool   `koanf:"seed_reference_data"`
}

// UsersConfig holds BadgerDB settings for the credential store.
//
// Environment Variables:
//   - USERS_PATH: Badger directory for user records (default: /data/users)
//   - USERS_IN_MEMORY: Run the store in memory (tests/dev only)
type UsersConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// SecurityConfig holds authentication and request protection settings.
//
// Environment Variables:
//   - JWT_SECRET: 32+ character secret for HS256 token signing (required)
//   - TOKEN_TTL: Token lifetime (default: 24h)
//   - LOCKOUT_MAX_ATTEMPTS: Failed logins before lockout (default: 5)
//   - LOCKOUT_DURATION: Lockout period (default: 30m)
//   - RATE_LIMIT_REQS / RATE_LIMIT_WINDOW: General API rate limit
//   - CORS_ORIGINS: Comma-separated allowed origins
type SecurityConfig struct {
	JWTSecret          string        `koanf:"jwt_secret"`
	TokenTTL           time.Duration `koanf:"token_ttl"`
	ClockSkewLeeway    time.Duration `koanf:"clock_skew_leeway"`
	LockoutMaxAttempts int           `koanf:"lockout_max_attempts"`
	LockoutDuration    time.Duration `koanf:"lockout_duration"`
	RateLimitReqs      int           `koanf:"rate_limit_reqs"`
	RateLimitWindow    time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled  bool          `koanf:"rate_limit_disabled"`
	CORSOrigins        []string      `koanf:"cors_origins"`
	TrustedProxies     []string      `koanf:"trusted_proxies"`
}

// IngestConfig holds the event ingestion pipeline settings.
//
// When enabled, a Watermill/NATS JetStream consumer subscribes to the
// agri.production, agri.prices and agri.alerts subjects, validates payloads
// against reference data and writes them into the analytics store. The
// pipeline is optional: record tables can equally be populated by an
// external ETL writing to the same subjects.
//
// Environment Variables:
//   - INGEST_ENABLED: Enable the consumer (default: false)
//   - NATS_URL: Broker URL (default: nats://127.0.0.1:4222)
//   - NATS_EMBEDDED: Run an embedded NATS server (single-binary mode)
type IngestConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	DurableName    string        `koanf:"durable_name"`
	QueueGroup     string        `koanf:"queue_group"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// APIConfig holds response shaping settings.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
