// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package config

import (
	"fmt"
	"net/url"
)

// minJWTSecretLength is the minimum accepted JWT secret length.
// HS256 security depends entirely on secret entropy.
const minJWTSecretLength = 32

// Validate checks the configuration for completeness and consistency.
// It is called by Load() after all layers have been merged.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateIngest(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates HTTP server configuration.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

// validateDatabase validates the analytics store configuration.
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

// validateSecurity validates authentication configuration.
// The JWT secret is mandatory: AgriIntel360 has no unauthenticated mode
// for data endpoints.
func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters, got %d",
			minJWTSecretLength, len(c.Security.JWTSecret))
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.Security.TokenTTL)
	}
	if c.Security.LockoutMaxAttempts < 1 {
		return fmt.Errorf("LOCKOUT_MAX_ATTEMPTS must be >= 1, got %d", c.Security.LockoutMaxAttempts)
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQS must be >= 1 when rate limiting is enabled")
	}

	// Wildcard CORS with credentials is rejected in production
	if c.Server.Environment == "production" {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain a wildcard in production")
			}
		}
	}
	return nil
}

// validateIngest validates the ingestion pipeline configuration (only if enabled).
func (c *Config) validateIngest() error {
	if !c.Ingest.Enabled {
		return nil
	}

	if c.Ingest.URL == "" {
		return fmt.Errorf("NATS_URL is required when INGEST_ENABLED=true")
	}
	u, err := url.Parse(c.Ingest.URL)
	if err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if u.Scheme != "nats" && u.Scheme != "tls" {
		return fmt.Errorf("NATS_URL must use nats:// or tls:// scheme, got %q", u.Scheme)
	}
	if c.Ingest.EmbeddedServer && c.Ingest.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	return nil
}

// validateLogging validates logging configuration.
func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
