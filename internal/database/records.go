// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/SIAKOU/Agri-Intel/internal/metrics"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

// InsertProduction stores a production record. Latitude and longitude
// are optional; records without them are excluded from the map but
// still count toward aggregates. Rejects unknown country or crop
// references.
func (db *DB) InsertProduction(ctx context.Context, rec *models.ProductionRecord) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ok, err := db.referenceExists(ctx, rec.CountryCode, rec.CropID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownReference
	}

	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO production (country_code, crop_id, year, quantity_tonnes, latitude, longitude, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CountryCode, rec.CropID, rec.Year, rec.QuantityTonnes,
		rec.Latitude, rec.Longitude, recordedAt)
	metrics.RecordDBQuery("insert_production", "production", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert production: %w", err)
	}

	return nil
}

// InsertPrice stores a market price observation. Rejects unknown
// country or crop references.
func (db *DB) InsertPrice(ctx context.Context, rec *models.PriceRecord) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ok, err := db.referenceExists(ctx, rec.CountryCode, rec.CropID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownReference
	}

	currency := rec.Currency
	if currency == "" {
		currency = "USD"
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO prices (country_code, crop_id, date, price_usd_per_kg, currency)
		VALUES (?, ?, ?, ?, ?)`,
		rec.CountryCode, rec.CropID, rec.Date, rec.PriceUSDPerKg, currency)
	metrics.RecordDBQuery("insert_price", "prices", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert price: %w", err)
	}

	return nil
}

// CountProductionRecords returns the number of production rows.
func (db *DB) CountProductionRecords(ctx context.Context) (int64, error) {
	return db.countTable(ctx, "production")
}

// CountPriceRecords returns the number of price rows.
func (db *DB) CountPriceRecords(ctx context.Context) (int64, error) {
	return db.countTable(ctx, "prices")
}

func (db *DB) countTable(ctx context.Context, table string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	// table names come from the fixed callers above, never user input
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// ListCountries returns the monitored countries.
func (db *DB) ListCountries(ctx context.Context) ([]models.Country, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	countries := []models.Country{}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT code, name, region FROM countries ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Country
		if err := rows.Scan(&c.Code, &c.Name, &c.Region); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

// ListCrops returns the tracked crops.
func (db *DB) ListCrops(ctx context.Context) ([]models.Crop, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	crops := []models.Crop{}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, category FROM crops ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list crops: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Crop
		if err := rows.Scan(&c.ID, &c.Name, &c.Category); err != nil {
			return nil, fmt.Errorf("scan crop: %w", err)
		}
		crops = append(crops, c)
	}
	return crops, rows.Err()
}
