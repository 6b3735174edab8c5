// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SIAKOU/Agri-Intel/internal/config"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

// testDBSemaphore serializes in-memory database creation. Concurrent
// DuckDB CGO calls can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

var testDBMutex sync.Mutex

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:              ":memory:",
		MaxMemory:         "1GB",
		SeedReferenceData: true,
	}

	testDBMutex.Lock()
	db, err := New(cfg)
	testDBMutex.Unlock()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func insertProduction(t *testing.T, db *DB, country, crop string, year int, tonnes float64, lat, lon *float64) {
	t.Helper()
	err := db.InsertProduction(context.Background(), &models.ProductionRecord{
		CountryCode:    country,
		CropID:         crop,
		Year:           year,
		QuantityTonnes: tonnes,
		Latitude:       lat,
		Longitude:      lon,
	})
	if err != nil {
		t.Fatalf("InsertProduction() error: %v", err)
	}
}

func ptr(f float64) *float64 { return &f }

func TestSeedReferenceData(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	countries, err := db.ListCountries(ctx)
	if err != nil {
		t.Fatalf("ListCountries() error: %v", err)
	}
	if len(countries) != 10 {
		t.Errorf("ListCountries() = %d countries, want 10", len(countries))
	}

	crops, err := db.ListCrops(ctx)
	if err != nil {
		t.Fatalf("ListCrops() error: %v", err)
	}
	if len(crops) != 10 {
		t.Errorf("ListCrops() = %d crops, want 10", len(crops))
	}

	// Seeding twice must not duplicate
	if err := db.SeedReferenceData(ctx); err != nil {
		t.Fatalf("SeedReferenceData() error: %v", err)
	}
	countries, err = db.ListCountries(ctx)
	if err != nil {
		t.Fatalf("ListCountries() error: %v", err)
	}
	if len(countries) != 10 {
		t.Errorf("re-seed produced %d countries, want 10", len(countries))
	}
}

func TestGetOverview_EmptyDatabase(t *testing.T) {
	db := setupTestDB(t)

	overview, err := db.GetOverview(context.Background())
	if err != nil {
		t.Fatalf("GetOverview() error: %v", err)
	}

	if overview.TotalProductionTonnes != 0 {
		t.Errorf("TotalProductionTonnes = %f, want 0", overview.TotalProductionTonnes)
	}
	if overview.ActiveAlerts != 0 {
		t.Errorf("ActiveAlerts = %d, want 0", overview.ActiveAlerts)
	}
	if overview.CountriesMonitored != 10 {
		t.Errorf("CountriesMonitored = %d, want 10", overview.CountriesMonitored)
	}
	if len(overview.TopCrops) != 0 {
		t.Errorf("TopCrops = %v, want empty", overview.TopCrops)
	}
	if overview.LastUpdated != nil {
		t.Errorf("LastUpdated = %v, want nil", overview.LastUpdated)
	}
}

func TestGetOverview_WithData(t *testing.T) {
	db := setupTestDB(t)

	insertProduction(t, db, "TG", "maize", 2024, 1000, nil, nil)
	insertProduction(t, db, "TG", "cassava", 2024, 3000, nil, nil)
	insertProduction(t, db, "GH", "maize", 2024, 500, nil, nil)

	overview, err := db.GetOverview(context.Background())
	if err != nil {
		t.Fatalf("GetOverview() error: %v", err)
	}

	if overview.TotalProductionTonnes != 4500 {
		t.Errorf("TotalProductionTonnes = %f, want 4500", overview.TotalProductionTonnes)
	}
	if len(overview.TopCrops) != 2 {
		t.Fatalf("TopCrops = %d entries, want 2", len(overview.TopCrops))
	}
	if overview.TopCrops[0].Crop != "Manioc" || overview.TopCrops[0].ProductionTonnes != 3000 {
		t.Errorf("TopCrops[0] = %+v, want Manioc/3000", overview.TopCrops[0])
	}
	if overview.LastUpdated == nil {
		t.Error("LastUpdated not set despite records")
	}
}

func TestGetProductionSeries_SortedByYear(t *testing.T) {
	db := setupTestDB(t)

	// Inserted out of order; two records share a year and must merge
	insertProduction(t, db, "TG", "maize", 2023, 800, nil, nil)
	insertProduction(t, db, "TG", "maize", 2021, 500, nil, nil)
	insertProduction(t, db, "TG", "maize", 2023, 200, nil, nil)
	insertProduction(t, db, "TG", "maize", 2022, 650, nil, nil)
	// Other country and crop must not leak in
	insertProduction(t, db, "GH", "maize", 2022, 9999, nil, nil)
	insertProduction(t, db, "TG", "rice", 2022, 9999, nil, nil)

	series, err := db.GetProductionSeries(context.Background(), SeriesFilter{CountryCode: "TG", CropID: "maize"})
	if err != nil {
		t.Fatalf("GetProductionSeries() error: %v", err)
	}

	want := []models.SeriesPoint{
		{Period: 2021, Value: 500},
		{Period: 2022, Value: 650},
		{Period: 2023, Value: 1000},
	}
	if len(series.Points) != len(want) {
		t.Fatalf("got %d points, want %d", len(series.Points), len(want))
	}
	for i, p := range series.Points {
		if p != want[i] {
			t.Errorf("Points[%d] = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestGetProductionSeries_YearRange(t *testing.T) {
	db := setupTestDB(t)

	insertProduction(t, db, "TG", "maize", 2020, 400, nil, nil)
	insertProduction(t, db, "TG", "maize", 2021, 500, nil, nil)
	insertProduction(t, db, "TG", "maize", 2022, 650, nil, nil)
	insertProduction(t, db, "TG", "maize", 2023, 800, nil, nil)

	series, err := db.GetProductionSeries(context.Background(), SeriesFilter{
		CountryCode: "TG",
		CropID:      "maize",
		YearFrom:    2021,
		YearTo:      2022,
	})
	if err != nil {
		t.Fatalf("GetProductionSeries() error: %v", err)
	}

	want := []models.SeriesPoint{
		{Period: 2021, Value: 500},
		{Period: 2022, Value: 650},
	}
	if len(series.Points) != len(want) {
		t.Fatalf("got %d points, want %d", len(series.Points), len(want))
	}
	for i, p := range series.Points {
		if p != want[i] {
			t.Errorf("Points[%d] = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestGetProductionSeries_NoFilters(t *testing.T) {
	db := setupTestDB(t)

	insertProduction(t, db, "TG", "maize", 2021, 500, nil, nil)
	insertProduction(t, db, "GH", "cocoa", 2022, 900, nil, nil)

	// An empty filter aggregates across every country and crop.
	series, err := db.GetProductionSeries(context.Background(), SeriesFilter{})
	if err != nil {
		t.Fatalf("GetProductionSeries() error: %v", err)
	}

	want := []models.SeriesPoint{
		{Period: 2021, Value: 500},
		{Period: 2022, Value: 900},
	}
	if len(series.Points) != len(want) {
		t.Fatalf("got %d points, want %d", len(series.Points), len(want))
	}
	for i, p := range series.Points {
		if p != want[i] {
			t.Errorf("Points[%d] = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestGetProductionSeries_Empty(t *testing.T) {
	db := setupTestDB(t)

	series, err := db.GetProductionSeries(context.Background(), SeriesFilter{CountryCode: "TG", CropID: "maize"})
	if err != nil {
		t.Fatalf("GetProductionSeries() error: %v", err)
	}
	if len(series.Points) != 0 {
		t.Errorf("got %d points, want 0", len(series.Points))
	}
}

func TestGetPriceSeries_LookbackWindow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now()
	prices := []struct {
		daysAgo int
		price   float64
	}{
		{5, 0.52},
		{20, 0.48},
		{100, 0.40},  // outside 1M and 3M
		{400, 0.30},  // outside 1Y
	}
	for _, p := range prices {
		err := db.InsertPrice(ctx, &models.PriceRecord{
			CountryCode:   "TG",
			CropID:        "maize",
			Date:          now.AddDate(0, 0, -p.daysAgo),
			PriceUSDPerKg: p.price,
		})
		if err != nil {
			t.Fatalf("InsertPrice() error: %v", err)
		}
	}

	tests := []struct {
		period     string
		wantPoints int
	}{
		{"1M", 2},
		{"3M", 2},
		{"1Y", 3},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			series, err := db.GetPriceSeries(ctx, "maize", tt.period)
			if err != nil {
				t.Fatalf("GetPriceSeries() error: %v", err)
			}
			if len(series.Points) != tt.wantPoints {
				t.Errorf("got %d points, want %d", len(series.Points), tt.wantPoints)
			}
			for i := 1; i < len(series.Points); i++ {
				if series.Points[i].Date.Before(series.Points[i-1].Date) {
					t.Error("points not sorted ascending by date")
				}
			}
		})
	}
}

func TestGetPriceSeries_InvalidPeriod(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetPriceSeries(context.Background(), "maize", "6M"); err == nil {
		t.Error("expected error for invalid period")
	}
}

func TestGetProductionMap_DropsRecordsWithoutLocation(t *testing.T) {
	db := setupTestDB(t)

	insertProduction(t, db, "TG", "maize", 2024, 100, ptr(6.17), ptr(1.23))
	insertProduction(t, db, "TG", "maize", 2024, 200, nil, nil)
	insertProduction(t, db, "GH", "cocoa", 2024, 300, ptr(6.69), ptr(-1.62))

	fc, err := db.GetProductionMap(context.Background(), MapFilter{})
	if err != nil {
		t.Fatalf("GetProductionMap() error: %v", err)
	}

	if fc.Type != "FeatureCollection" {
		t.Errorf("Type = %q, want FeatureCollection", fc.Type)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("got %d features, want 2 (record without location dropped)", len(fc.Features))
	}

	// GeoJSON geometry is [longitude, latitude]
	first := fc.Features[0]
	if first.Geometry.Type != "Point" || len(first.Geometry.Coordinates) != 2 {
		t.Fatalf("unexpected geometry: %+v", first.Geometry)
	}
}

func TestGetProductionMap_Filters(t *testing.T) {
	db := setupTestDB(t)

	insertProduction(t, db, "TG", "maize", 2023, 100, ptr(6.17), ptr(1.23))
	insertProduction(t, db, "TG", "maize", 2024, 150, ptr(6.17), ptr(1.23))
	insertProduction(t, db, "GH", "maize", 2024, 300, ptr(6.69), ptr(-1.62))

	fc, err := db.GetProductionMap(context.Background(), MapFilter{CountryCode: "TG", Year: 2024})
	if err != nil {
		t.Fatalf("GetProductionMap() error: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
	if fc.Features[0].Properties["country"] != "TG" {
		t.Errorf("country = %v, want TG", fc.Features[0].Properties["country"])
	}
}

func TestInsertProduction_UnknownReference(t *testing.T) {
	db := setupTestDB(t)

	err := db.InsertProduction(context.Background(), &models.ProductionRecord{
		CountryCode:    "ZZ",
		CropID:         "maize",
		Year:           2024,
		QuantityTonnes: 100,
	})
	if !errors.Is(err, ErrUnknownReference) {
		t.Errorf("error = %v, want ErrUnknownReference", err)
	}

	err = db.InsertProduction(context.Background(), &models.ProductionRecord{
		CountryCode:    "TG",
		CropID:         "durian",
		Year:           2024,
		QuantityTonnes: 100,
	})
	if !errors.Is(err, ErrUnknownReference) {
		t.Errorf("error = %v, want ErrUnknownReference", err)
	}
}

func TestYieldPrediction_NotFoundThenLatestWins(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetYieldPrediction(ctx, "TG", "maize")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetYieldPrediction() error = %v, want ErrNotFound", err)
	}

	older := &models.YieldPrediction{
		CountryCode:    "TG",
		CropID:         "maize",
		PredictedYield: 1.2,
		Confidence:     0.7,
		ModelName:      "yield-rf",
		ModelVersion:   "1.0.0",
		GeneratedAt:    time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	newer := &models.YieldPrediction{
		CountryCode:    "TG",
		CropID:         "maize",
		PredictedYield: 1.5,
		Confidence:     0.82,
		ModelName:      "yield-rf",
		ModelVersion:   "1.1.0",
		GeneratedAt:    time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
	}

	if err := db.UpsertPrediction(ctx, older); err != nil {
		t.Fatalf("UpsertPrediction() error: %v", err)
	}
	if err := db.UpsertPrediction(ctx, newer); err != nil {
		t.Fatalf("UpsertPrediction() error: %v", err)
	}

	got, err := db.GetYieldPrediction(ctx, "TG", "maize")
	if err != nil {
		t.Fatalf("GetYieldPrediction() error: %v", err)
	}
	if got.PredictedYield != 1.5 || got.ModelVersion != "1.1.0" {
		t.Errorf("got %+v, want most recent prediction", got)
	}
}

func TestUpsertPrediction_UnknownReference(t *testing.T) {
	db := setupTestDB(t)

	err := db.UpsertPrediction(context.Background(), &models.YieldPrediction{
		CountryCode:    "ZZ",
		CropID:         "maize",
		PredictedYield: 1.0,
		Confidence:     0.5,
		ModelName:      "m",
		ModelVersion:   "1",
	})
	if !errors.Is(err, ErrUnknownReference) {
		t.Errorf("error = %v, want ErrUnknownReference", err)
	}
}

func TestAlerts_CountryScoping(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, a := range []models.Alert{
		{Severity: "warning", Title: "Drought risk", Message: "Rainfall deficit", CountryCode: "TG", CropID: "maize"},
		{Severity: "critical", Title: "Locust swarm", Message: "Swarm approaching", CountryCode: "TG"},
		{Severity: "info", Title: "Price update", Message: "Cocoa price up", CountryCode: "GH", CropID: "cocoa"},
	} {
		alert := a
		if _, err := db.InsertAlert(ctx, &alert); err != nil {
			t.Fatalf("InsertAlert() error: %v", err)
		}
	}

	tgAlerts, err := db.GetAlerts(ctx, AlertFilter{CountryCode: "TG"})
	if err != nil {
		t.Fatalf("GetAlerts() error: %v", err)
	}
	if len(tgAlerts) != 2 {
		t.Fatalf("TG alerts = %d, want 2", len(tgAlerts))
	}
	for _, a := range tgAlerts {
		if a.CountryCode != "TG" {
			t.Errorf("alert %d leaked from %s into TG scope", a.ID, a.CountryCode)
		}
	}

	ghAlerts, err := db.GetAlerts(ctx, AlertFilter{CountryCode: "GH"})
	if err != nil {
		t.Fatalf("GetAlerts() error: %v", err)
	}
	if len(ghAlerts) != 1 || ghAlerts[0].CropID != "cocoa" {
		t.Errorf("GH alerts = %+v, want single cocoa alert", ghAlerts)
	}
}

func TestAlerts_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := db.InsertAlert(ctx, &models.Alert{
			Severity:    "info",
			Title:       "Alert",
			Message:     "msg",
			CountryCode: "TG",
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("InsertAlert() error: %v", err)
		}
	}

	alerts, err := db.GetAlerts(ctx, AlertFilter{CountryCode: "TG"})
	if err != nil {
		t.Fatalf("GetAlerts() error: %v", err)
	}
	for i := 1; i < len(alerts); i++ {
		if alerts[i].CreatedAt.After(alerts[i-1].CreatedAt) {
			t.Error("alerts not sorted newest-first")
		}
	}
}

func TestAcknowledgeAlert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created, err := db.InsertAlert(ctx, &models.Alert{
		Severity:    "warning",
		Title:       "Drought risk",
		Message:     "Rainfall deficit",
		CountryCode: "TG",
	})
	if err != nil {
		t.Fatalf("InsertAlert() error: %v", err)
	}

	acked, err := db.AcknowledgeAlert(ctx, created.ID)
	if err != nil {
		t.Fatalf("AcknowledgeAlert() error: %v", err)
	}
	if !acked.Acknowledged {
		t.Error("alert not acknowledged")
	}

	// Idempotent
	again, err := db.AcknowledgeAlert(ctx, created.ID)
	if err != nil {
		t.Fatalf("second AcknowledgeAlert() error: %v", err)
	}
	if !again.Acknowledged {
		t.Error("second acknowledge lost the flag")
	}

	// Unknown ID
	if _, err := db.AcknowledgeAlert(ctx, 999999); !errors.Is(err, ErrNotFound) {
		t.Errorf("AcknowledgeAlert(unknown) error = %v, want ErrNotFound", err)
	}

	// Acknowledged alerts drop out of the active count
	count, err := db.CountActiveAlerts(ctx)
	if err != nil {
		t.Fatalf("CountActiveAlerts() error: %v", err)
	}
	if count != 0 {
		t.Errorf("CountActiveAlerts() = %d, want 0", count)
	}
}

func TestInsertAlert_Validation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.InsertAlert(ctx, &models.Alert{
		Severity:    "catastrophic",
		Title:       "t",
		Message:     "m",
		CountryCode: "TG",
	}); err == nil {
		t.Error("expected error for invalid severity")
	}

	if _, err := db.InsertAlert(ctx, &models.Alert{
		Severity:    "info",
		Title:       "t",
		Message:     "m",
		CountryCode: "ZZ",
	}); !errors.Is(err, ErrUnknownReference) {
		t.Errorf("error = %v, want ErrUnknownReference", err)
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}
