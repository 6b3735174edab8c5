// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package models

import (
	"time"
)

// Crop categories.
const (
	CropCategoryCereal   = "cereal"
	CropCategoryTuber    = "tuber"
	CropCategoryFruit    = "fruit"
	CropCategoryCashCrop = "cash_crop"
	CropCategoryLegume   = "legume"
)

// Alert severities, ordered by urgency.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Country is reference data: an ISO 3166-1 alpha-2 code plus display name.
// Countries are seeded at schema initialization and read-only at runtime.
type Country struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

// Crop is reference data for a monitored crop.
type Crop struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ProductionRecord is one observed production quantity for a country/crop/year.
// The table is append-only; records are written by the ingestion pipeline and
// read by the aggregation queries. Location is optional: records without
// coordinates are excluded from map responses but still count in series and
// totals.
type ProductionRecord struct {
	CountryCode    string    `json:"country"`
	CropID         string    `json:"crop"`
	Year           int       `json:"year"`
	QuantityTonnes float64   `json:"quantity_tonnes"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// PriceRecord is one observed market price. Append-only time series.
type PriceRecord struct {
	CountryCode   string    `json:"country"`
	CropID        string    `json:"crop"`
	Date          time.Time `json:"date"`
	PriceUSDPerKg float64   `json:"price_usd_per_kg"`
	Currency      string    `json:"currency"`
}

// YieldPrediction is a model-generated yield estimate for a country/crop
// pair. Predictions are produced by the external ML pipeline and consumed
// read-only here; when several generations exist, the latest wins.
type YieldPrediction struct {
	CountryCode    string    `json:"country"`
	CropID         string    `json:"crop"`
	PredictedYield float64   `json:"predicted_yield_tonnes_per_ha"`
	Confidence     float64   `json:"confidence"`
	ModelName      string    `json:"model_name"`
	ModelVersion   string    `json:"model_version"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Alert is a rule-evaluation result surfaced to users. Alerts are created by
// the ingestion pipeline; the only mutation exposed through the API is
// acknowledgment.
type Alert struct {
	ID           int64     `json:"id"`
	Severity     string    `json:"severity"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	CountryCode  string    `json:"country,omitempty"`
	CropID       string    `json:"crop,omitempty"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidSeverity reports whether s is a known alert severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// ValidCropCategory reports whether c is a known crop category.
func ValidCropCategory(c string) bool {
	switch c {
	case CropCategoryCereal, CropCategoryTuber, CropCategoryFruit,
		CropCategoryCashCrop, CropCategoryLegume:
		return true
	}
	return false
}
