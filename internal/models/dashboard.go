// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package models

import (
	"time"
)

// Price lookback periods accepted by the price chart endpoint.
const (
	Period1M = "1M"
	Period3M = "3M"
	Period1Y = "1Y"
)

// Overview is the dashboard snapshot aggregate. Empty record tables yield
// zeroes, never errors. TotalUsers is populated only for admin claims.
type Overview struct {
	TotalProductionTonnes float64    `json:"total_production_tonnes"`
	ActiveAlerts          int64      `json:"active_alerts"`
	CountriesMonitored    int64      `json:"countries_monitored"`
	TopCrops              []CropRank `json:"top_crops"`
	TotalUsers            *int64     `json:"total_users,omitempty"`
	LastUpdated           *time.Time `json:"last_updated,omitempty"`
}

// CropRank is one entry of the overview's top-crops list.
type CropRank struct {
	Crop             string  `json:"crop"`
	ProductionTonnes float64 `json:"production_tonnes"`
}

// SeriesPoint is one point of a production time series, keyed by year.
type SeriesPoint struct {
	Period int     `json:"period"`
	Value  float64 `json:"value"`
}

// ProductionSeries is the production chart response.
type ProductionSeries struct {
	Country string        `json:"country,omitempty"`
	Crop    string        `json:"crop,omitempty"`
	Points  []SeriesPoint `json:"points"`
}

// PricePoint is one point of a price time series.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PriceSeries is the price chart response.
type PriceSeries struct {
	Crop   string       `json:"crop"`
	Period string       `json:"period"`
	Points []PricePoint `json:"points"`
}

// MapFeature is one GeoJSON feature of the production map response.
type MapFeature struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   MapGeometry            `json:"geometry"`
}

// MapGeometry is a GeoJSON point geometry ([longitude, latitude]).
type MapGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FeatureCollection is a GeoJSON FeatureCollection, the shape expected by
// web mapping libraries.
type FeatureCollection struct {
	Type     string       `json:"type"`
	Features []MapFeature `json:"features"`
}

// NewFeatureCollection builds a FeatureCollection with a non-nil feature
// slice so empty results serialize as [] rather than null.
func NewFeatureCollection(features []MapFeature) *FeatureCollection {
	if features == nil {
		features = []MapFeature{}
	}
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// HealthStatus is the /health response payload.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	Uptime            float64 `json:"uptime_seconds"`
}

// DetailedHealth is the /health/detailed response payload.
type DetailedHealth struct {
	Status            string     `json:"status"`
	Version           string     `json:"version"`
	Environment       string     `json:"environment"`
	DatabaseConnected bool       `json:"database_connected"`
	UserStoreOpen     bool       `json:"user_store_open"`
	IngestConnected   *bool      `json:"ingest_connected,omitempty"`
	RegisteredUsers   int64      `json:"registered_users"`
	ProductionRecords int64      `json:"production_records"`
	PriceRecords      int64      `json:"price_records"`
	ActiveAlerts      int64      `json:"active_alerts"`
	LastIngestAt      *time.Time `json:"last_ingest_at,omitempty"`
	Uptime            float64    `json:"uptime_seconds"`
}
