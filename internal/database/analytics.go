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

// GetOverview computes the dashboard snapshot: total production, active
// alert count, number of monitored countries and the top crops by
// production volume. Empty tables produce zeroes, never errors.
// TotalUsers is filled in by the handler layer for admin callers.
func (db *DB) GetOverview(ctx context.Context) (*models.Overview, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	overview := &models.Overview{TopCrops: []models.CropRank{}}

	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COALESCE((SELECT SUM(quantity_tonnes) FROM production), 0),
			(SELECT COUNT(*) FROM alerts WHERE NOT acknowledged),
			(SELECT COUNT(*) FROM countries)`).
		Scan(&overview.TotalProductionTonnes, &overview.ActiveAlerts, &overview.CountriesMonitored)
	if err != nil {
		metrics.RecordDBQuery("overview", "production", time.Since(start), err)
		return nil, fmt.Errorf("overview aggregates: %w", err)
	}

	var lastUpdated sql.NullTime
	err = db.conn.QueryRowContext(ctx,
		`SELECT MAX(recorded_at) FROM production`).Scan(&lastUpdated)
	if err != nil {
		metrics.RecordDBQuery("overview", "production", time.Since(start), err)
		return nil, fmt.Errorf("overview last updated: %w", err)
	}
	if lastUpdated.Valid {
		t := lastUpdated.Time
		overview.LastUpdated = &t
	}

	err = db.queryAndScan(ctx, `
		SELECT c.name, SUM(p.quantity_tonnes) AS total
		FROM production p
		JOIN crops c ON p.crop_id = c.id
		GROUP BY c.name
		ORDER BY total DESC
		LIMIT 5`, nil,
		func(rows *sql.Rows) error {
			var rank models.CropRank
			if err := rows.Scan(&rank.Crop, &rank.ProductionTonnes); err != nil {
				return err
			}
			overview.TopCrops = append(overview.TopCrops, rank)
			return nil
		})
	metrics.RecordDBQuery("overview", "production", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("overview top crops: %w", err)
	}

	return overview, nil
}

// SeriesFilter narrows the production series by country, crop and an
// inclusive year range. Every field is optional; zero values leave that
// dimension unfiltered.
type SeriesFilter struct {
	CountryCode string
	CropID      string
	YearFrom    int
	YearTo      int
}

// GetProductionSeries returns yearly production totals matching the
// filter, one point per year, sorted ascending. Years with no records
// are absent rather than zero-filled.
func (db *DB) GetProductionSeries(ctx context.Context, filter SeriesFilter) (*models.ProductionSeries, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	series := &models.ProductionSeries{
		Country: filter.CountryCode,
		Crop:    filter.CropID,
		Points:  []models.SeriesPoint{},
	}

	query := `
		SELECT year, SUM(quantity_tonnes)
		FROM production
		WHERE 1=1`
	args := []interface{}{}

	if filter.CountryCode != "" {
		query += " AND country_code = ?"
		args = append(args, filter.CountryCode)
	}
	if filter.CropID != "" {
		query += " AND crop_id = ?"
		args = append(args, filter.CropID)
	}
	if filter.YearFrom > 0 {
		query += " AND year >= ?"
		args = append(args, filter.YearFrom)
	}
	if filter.YearTo > 0 {
		query += " AND year <= ?"
		args = append(args, filter.YearTo)
	}
	query += `
		GROUP BY year
		ORDER BY year ASC`

	err := db.queryAndScan(ctx, query, args,
		func(rows *sql.Rows) error {
			var point models.SeriesPoint
			if err := rows.Scan(&point.Period, &point.Value); err != nil {
				return err
			}
			series.Points = append(series.Points, point)
			return nil
		})
	metrics.RecordDBQuery("production_series", "production", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("production series: %w", err)
	}

	return series, nil
}

// priceLookback maps the accepted chart periods to their time windows.
func priceLookback(period string) (time.Duration, error) {
	switch period {
	case models.Period1M:
		return 30 * 24 * time.Hour, nil
	case models.Period3M:
		return 90 * 24 * time.Hour, nil
	case models.Period1Y:
		return 365 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid period: must be 1M, 3M, or 1Y")
	}
}

// GetPriceSeries returns average daily prices for a crop over the
// requested lookback window, sorted ascending by date.
func (db *DB) GetPriceSeries(ctx context.Context, cropID, period string) (*models.PriceSeries, error) {
	lookback, err := priceLookback(period)
	if err != nil {
		return nil, err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	since := time.Now().Add(-lookback)
	series := &models.PriceSeries{
		Crop:   cropID,
		Period: period,
		Points: []models.PricePoint{},
	}

	err = db.queryAndScan(ctx, `
		SELECT date, AVG(price_usd_per_kg)
		FROM prices
		WHERE crop_id = ? AND date >= ?
		GROUP BY date
		ORDER BY date ASC`,
		[]interface{}{cropID, since},
		func(rows *sql.Rows) error {
			var point models.PricePoint
			if err := rows.Scan(&point.Date, &point.Price); err != nil {
				return err
			}
			series.Points = append(series.Points, point)
			return nil
		})
	metrics.RecordDBQuery("price_series", "prices", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("price series: %w", err)
	}

	return series, nil
}

// MapFilter narrows the production map query. Zero values mean no filter.
type MapFilter struct {
	CountryCode string
	CropID      string
	Year        int
}

// GetProductionMap returns production records with known coordinates as
// a GeoJSON FeatureCollection. Records without a location are dropped,
// not emitted with null geometry.
func (db *DB) GetProductionMap(ctx context.Context, filter MapFilter) (*models.FeatureCollection, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()

	query := `
		SELECT p.country_code, c.name, p.crop_id, p.year, p.quantity_tonnes, p.latitude, p.longitude
		FROM production p
		JOIN crops c ON p.crop_id = c.id
		WHERE p.latitude IS NOT NULL AND p.longitude IS NOT NULL`
	args := []interface{}{}

	if filter.CountryCode != "" {
		query += " AND p.country_code = ?"
		args = append(args, filter.CountryCode)
	}
	if filter.CropID != "" {
		query += " AND p.crop_id = ?"
		args = append(args, filter.CropID)
	}
	if filter.Year != 0 {
		query += " AND p.year = ?"
		args = append(args, filter.Year)
	}
	query += " ORDER BY p.quantity_tonnes DESC"

	var features []models.MapFeature
	err := db.queryAndScan(ctx, query, args,
		func(rows *sql.Rows) error {
			var (
				countryCode, cropName, cropID string
				year                          int
				quantity, lat, lon            float64
			)
			if err := rows.Scan(&countryCode, &cropName, &cropID, &year, &quantity, &lat, &lon); err != nil {
				return err
			}
			features = append(features, models.MapFeature{
				Type: "Feature",
				Properties: map[string]interface{}{
					"country":         countryCode,
					"crop":            cropID,
					"crop_name":       cropName,
					"year":            year,
					"quantity_tonnes": quantity,
				},
				Geometry: models.MapGeometry{
					Type:        "Point",
					Coordinates: []float64{lon, lat},
				},
			})
			return nil
		})
	metrics.RecordDBQuery("production_map", "production", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("production map: %w", err)
	}

	return models.NewFeatureCollection(features), nil
}
