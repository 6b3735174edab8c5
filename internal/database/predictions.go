// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SIAKOU/Agri-Intel/internal/metrics"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

// GetYieldPrediction returns the most recent prediction for a country
// and crop. ErrNotFound when no model has produced one yet.
func (db *DB) GetYieldPrediction(ctx context.Context, countryCode, cropID string) (*models.YieldPrediction, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var p models.YieldPrediction

	err := db.conn.QueryRowContext(ctx, `
		SELECT country_code, crop_id, predicted_yield, confidence, model_name, model_version, generated_at
		FROM predictions
		WHERE country_code = ? AND crop_id = ?
		ORDER BY generated_at DESC
		LIMIT 1`,
		countryCode, cropID).
		Scan(&p.CountryCode, &p.CropID, &p.PredictedYield, &p.Confidence,
			&p.ModelName, &p.ModelVersion, &p.GeneratedAt)
	metrics.RecordDBQuery("get_prediction", "predictions", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prediction: %w", err)
	}

	return &p, nil
}

// UpsertPrediction stores a new model output. Older predictions for the
// same pair are kept; reads take the latest by generation time, so a
// fresh insert wins without a destructive update. Rejects unknown
// country or crop references.
func (db *DB) UpsertPrediction(ctx context.Context, p *models.YieldPrediction) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ok, err := db.referenceExists(ctx, p.CountryCode, p.CropID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownReference
	}

	generatedAt := p.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO predictions (country_code, crop_id, predicted_yield, confidence, model_name, model_version, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.CountryCode, p.CropID, p.PredictedYield, p.Confidence,
		p.ModelName, p.ModelVersion, generatedAt)
	metrics.RecordDBQuery("upsert_prediction", "predictions", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}

	return nil
}
