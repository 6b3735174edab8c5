// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package ingest

import (
	"time"
)

// JetStream stream and subject layout. The stream captures every agri.*
// subject so external ETL publishers and this consumer agree on naming.
const (
	StreamName = "AGRI"

	SubjectProduction  = "agri.production"
	SubjectPrices      = "agri.prices"
	SubjectAlerts      = "agri.alerts"
	SubjectPredictions = "agri.predictions"
)

// StreamSubjects returns the subject bindings for the ingest stream.
func StreamSubjects() []string {
	return []string{"agri.>"}
}

// ProductionEvent is the payload published on agri.production.
type ProductionEvent struct {
	Country        string    `json:"country" validate:"required,wa_country_code"`
	Crop           string    `json:"crop" validate:"required,min=2,max=32"`
	Year           int       `json:"year" validate:"required,min=1960,max=2100"`
	QuantityTonnes float64   `json:"quantity_tonnes" validate:"required,gt=0"`
	Latitude       *float64  `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude      *float64  `json:"longitude,omitempty" validate:"omitempty,longitude"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// PriceEvent is the payload published on agri.prices.
type PriceEvent struct {
	Country       string    `json:"country" validate:"required,wa_country_code"`
	Crop          string    `json:"crop" validate:"required,min=2,max=32"`
	Date          time.Time `json:"date" validate:"required"`
	PriceUSDPerKg float64   `json:"price_usd_per_kg" validate:"required,gt=0"`
	Currency      string    `json:"currency" validate:"omitempty,len=3"`
}

// AlertEvent is the payload published on agri.alerts. Crop is optional
// for country-wide alerts.
type AlertEvent struct {
	Severity string `json:"severity" validate:"required,oneof=info warning critical"`
	Title    string `json:"title" validate:"required,max=200"`
	Message  string `json:"message" validate:"required,max=2000"`
	Country  string `json:"country" validate:"required,wa_country_code"`
	Crop     string `json:"crop,omitempty" validate:"omitempty,min=2,max=32"`
}

// PredictionEvent is the payload published on agri.predictions by the ML
// pipeline. A new generation supersedes older ones at read time.
type PredictionEvent struct {
	Country        string    `json:"country" validate:"required,wa_country_code"`
	Crop           string    `json:"crop" validate:"required,min=2,max=32"`
	PredictedYield float64   `json:"predicted_yield_tonnes_per_ha" validate:"required,gt=0"`
	Confidence     float64   `json:"confidence" validate:"required,gt=0,lte=1"`
	ModelName      string    `json:"model_name" validate:"required,max=64"`
	ModelVersion   string    `json:"model_version" validate:"required,max=32"`
	GeneratedAt    time.Time `json:"generated_at"`
}
