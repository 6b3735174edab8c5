// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SIAKOU/Agri-Intel/internal/metrics"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

// AlertFilter narrows alert listings. Zero values mean no filter.
type AlertFilter struct {
	CountryCode string
	Severity    string
	OnlyActive  bool
	Limit       int
}

// GetAlerts lists alerts newest-first. A country filter scopes the
// result to that country's alerts only.
func (db *DB) GetAlerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()

	query := `
		SELECT id, severity, title, message, country_code, crop_id, acknowledged, created_at
		FROM alerts
		WHERE 1=1`
	args := []interface{}{}

	if filter.CountryCode != "" {
		query += " AND country_code = ?"
		args = append(args, filter.CountryCode)
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, filter.Severity)
	}
	if filter.OnlyActive {
		query += " AND NOT acknowledged"
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	alerts := []models.Alert{}
	err := db.queryAndScan(ctx, query, args,
		func(rows *sql.Rows) error {
			var (
				alert  models.Alert
				cropID sql.NullString
			)
			if err := rows.Scan(&alert.ID, &alert.Severity, &alert.Title, &alert.Message,
				&alert.CountryCode, &cropID, &alert.Acknowledged, &alert.CreatedAt); err != nil {
				return err
			}
			if cropID.Valid {
				alert.CropID = cropID.String
			}
			alerts = append(alerts, alert)
			return nil
		})
	metrics.RecordDBQuery("get_alerts", "alerts", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("get alerts: %w", err)
	}

	return alerts, nil
}

// AcknowledgeAlert marks an alert as acknowledged. Acknowledging an
// already-acknowledged alert is a no-op, not an error; an unknown ID
// returns ErrNotFound.
func (db *DB) AcknowledgeAlert(ctx context.Context, id int64) (*models.Alert, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE alerts SET acknowledged = TRUE WHERE id = ?`, id)
	metrics.RecordDBQuery("ack_alert", "alerts", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("acknowledge alert: %w", err)
	}

	var (
		alert  models.Alert
		cropID sql.NullString
	)
	err = db.conn.QueryRowContext(ctx, `
		SELECT id, severity, title, message, country_code, crop_id, acknowledged, created_at
		FROM alerts WHERE id = ?`, id).
		Scan(&alert.ID, &alert.Severity, &alert.Title, &alert.Message,
			&alert.CountryCode, &cropID, &alert.Acknowledged, &alert.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read alert: %w", err)
	}
	if cropID.Valid {
		alert.CropID = cropID.String
	}

	return &alert, nil
}

// InsertAlert stores a new alert and returns it with its assigned ID.
// CropID may be empty for country-wide alerts.
func (db *DB) InsertAlert(ctx context.Context, alert *models.Alert) (*models.Alert, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if !models.ValidSeverity(alert.Severity) {
		return nil, fmt.Errorf("invalid severity %q", alert.Severity)
	}

	ok, err := db.referenceExists(ctx, alert.CountryCode, alert.CropID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownReference
	}

	createdAt := alert.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var cropID interface{}
	if alert.CropID != "" {
		cropID = alert.CropID
	}

	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO alerts (severity, title, message, country_code, crop_id, acknowledged, created_at)
		VALUES (?, ?, ?, ?, ?, FALSE, ?)
		RETURNING id`,
		alert.Severity, alert.Title, alert.Message, alert.CountryCode, cropID, createdAt)

	stored := *alert
	stored.Acknowledged = false
	stored.CreatedAt = createdAt
	err = row.Scan(&stored.ID)
	metrics.RecordDBQuery("insert_alert", "alerts", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	return &stored, nil
}

// CountActiveAlerts returns the number of unacknowledged alerts.
func (db *DB) CountActiveAlerts(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE NOT acknowledged`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return count, nil
}
