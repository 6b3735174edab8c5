// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package database

import (
	"context"
	"fmt"

	"github.com/SIAKOU/Agri-Intel/internal/logging"
)

// createTables creates the schema if it does not exist yet. Identity
// columns for alerts come from a sequence because DuckDB has no
// autoincrement.
func (db *DB) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS countries (
			code VARCHAR(2) PRIMARY KEY,
			name VARCHAR NOT NULL,
			region VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS crops (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			category VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS production (
			country_code VARCHAR(2) NOT NULL,
			crop_id VARCHAR NOT NULL,
			year INTEGER NOT NULL,
			quantity_tonnes DOUBLE NOT NULL,
			latitude DOUBLE,
			longitude DOUBLE,
			recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS prices (
			country_code VARCHAR(2) NOT NULL,
			crop_id VARCHAR NOT NULL,
			date DATE NOT NULL,
			price_usd_per_kg DOUBLE NOT NULL,
			currency VARCHAR NOT NULL DEFAULT 'USD'
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			country_code VARCHAR(2) NOT NULL,
			crop_id VARCHAR NOT NULL,
			predicted_yield DOUBLE NOT NULL,
			confidence DOUBLE NOT NULL,
			model_name VARCHAR NOT NULL,
			model_version VARCHAR NOT NULL,
			generated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE SEQUENCE IF NOT EXISTS alerts_id_seq`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGINT PRIMARY KEY DEFAULT nextval('alerts_id_seq'),
			severity VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			message VARCHAR NOT NULL,
			country_code VARCHAR(2) NOT NULL,
			crop_id VARCHAR,
			acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}

	return nil
}

func (db *DB) createIndexes() error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_production_country_crop ON production (country_code, crop_id, year)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_crop_date ON prices (crop_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_country_crop ON predictions (country_code, crop_id, generated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_country_created ON alerts (country_code, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("create indexes: %w", err)
		}
	}

	return nil
}

// referenceCountries are the monitored West African countries.
var referenceCountries = [][3]string{
	{"TG", "Togo", "West Africa"},
	{"GH", "Ghana", "West Africa"},
	{"CI", "Côte d'Ivoire", "West Africa"},
	{"BJ", "Bénin", "West Africa"},
	{"BF", "Burkina Faso", "West Africa"},
	{"NG", "Nigeria", "West Africa"},
	{"SN", "Sénégal", "West Africa"},
	{"ML", "Mali", "West Africa"},
	{"NE", "Niger", "West Africa"},
	{"GN", "Guinée", "West Africa"},
}

// referenceCrops are the tracked crops with their categories.
var referenceCrops = [][3]string{
	{"maize", "Maïs", "cereal"},
	{"rice", "Riz", "cereal"},
	{"millet", "Mil", "cereal"},
	{"sorghum", "Sorgho", "cereal"},
	{"cassava", "Manioc", "tuber"},
	{"yam", "Igname", "tuber"},
	{"cocoa", "Cacao", "cash_crop"},
	{"coffee", "Café", "cash_crop"},
	{"cotton", "Coton", "cash_crop"},
	{"groundnut", "Arachide", "legume"},
}

// SeedReferenceData inserts the monitored countries and tracked crops.
// Idempotent; existing rows are left untouched.
func (db *DB) SeedReferenceData(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	for _, c := range referenceCountries {
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO countries (code, name, region) VALUES (?, ?, ?)
			 ON CONFLICT (code) DO NOTHING`,
			c[0], c[1], c[2])
		if err != nil {
			return fmt.Errorf("seed country %s: %w", c[0], err)
		}
	}

	for _, c := range referenceCrops {
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO crops (id, name, category) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO NOTHING`,
			c[0], c[1], c[2])
		if err != nil {
			return fmt.Errorf("seed crop %s: %w", c[0], err)
		}
	}

	logging.Debug().
		Int("countries", len(referenceCountries)).
		Int("crops", len(referenceCrops)).
		Msg("Reference data seeded")

	return nil
}

// referenceExists reports whether the country and crop are both known.
// An empty cropID skips the crop check (alerts may be country-wide).
func (db *DB) referenceExists(ctx context.Context, countryCode, cropID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM countries WHERE code = ?`, countryCode).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check country: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	if cropID == "" {
		return true, nil
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM crops WHERE id = ?`, cropID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check crop: %w", err)
	}
	return count > 0, nil
}
