// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

// Package api provides HTTP request validation structs with
// go-playground/validator tags. These are validated before any handler
// touches the stores, so malformed parameters never reach a query.
package api

// RegisterRequestValidation represents the validated request body for
// POST /api/v1/auth/register. Named differently from models.RegisterRequest
// to avoid conflicts.
//
// The password rule is the custom validator registered in
// internal/validation: at least 8 characters with at least one digit.
type RegisterRequestValidation struct {
	Email    string `validate:"required,email"`
	Username string `validate:"required,min=3,max=32,alphanum"`
	FullName string `validate:"omitempty,max=128"`
	Password string `validate:"required,password"`
	Country  string `validate:"omitempty,wa_country_code"`
	Language string `validate:"omitempty,oneof=fr en"`
}

// LoginRequestValidation represents the validated request body for
// POST /api/v1/auth/login.
type LoginRequestValidation struct {
	Username string `validate:"required,min=1"`
	Password string `validate:"required,min=1"`
}

// ProductionSeriesRequest represents the validated query parameters for
// GET /api/v1/dashboard/charts/production. All filters are optional; an
// omitted country or crop aggregates across every one.
type ProductionSeriesRequest struct {
	Country  string `validate:"omitempty,wa_country_code"`
	Crop     string `validate:"omitempty,min=2,max=32"`
	YearFrom int    `validate:"omitempty,min=1960,max=2100"`
	YearTo   int    `validate:"omitempty,min=1960,max=2100"`
}

// PriceSeriesRequest represents the validated query parameters for
// GET /api/v1/dashboard/charts/prices.
type PriceSeriesRequest struct {
	Crop   string `validate:"required,min=2,max=32"`
	Period string `validate:"required,oneof=1M 3M 1Y"`
}

// ProductionMapRequest represents the validated query parameters for
// GET /api/v1/dashboard/maps/production. All filters are optional.
type ProductionMapRequest struct {
	Country string `validate:"omitempty,wa_country_code"`
	Crop    string `validate:"omitempty,min=2,max=32"`
	Year    int    `validate:"omitempty,min=1960,max=2100"`
}

// AlertsRequest represents the validated query parameters for
// GET /api/v1/alerts.
type AlertsRequest struct {
	Severity string `validate:"omitempty,oneof=info warning critical"`
	Limit    int    `validate:"omitempty,min=1,max=500"`
}

// PredictionRequest represents the validated path parameters for
// GET /api/v1/predictions/yield/{country}/{crop}.
type PredictionRequest struct {
	Country string `validate:"required,wa_country_code"`
	Crop    string `validate:"required,min=2,max=32"`
}
