// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/SIAKOU/Agri-Intel/internal/cache"
	"github.com/SIAKOU/Agri-Intel/internal/database"
	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

// Overview returns the dashboard snapshot aggregate.
//
// Method: GET
// Path: /api/v1/dashboard/overview
//
// The total_users field is admin-only: admins always receive it, and a
// non-admin explicitly asking for it via ?include=users gets 403 rather
// than a silently stripped response.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required", nil)
		return
	}

	wantUsers := strings.Contains(r.URL.Query().Get("include"), "users")
	if wantUsers && !claims.IsAdmin() {
		respondError(w, http.StatusForbidden, models.ErrCodeForbidden, "User statistics require the admin role", nil)
		return
	}

	key := cache.GenerateKey("overview", map[string]interface{}{"admin": claims.IsAdmin()})
	if cached, found := h.cache.Get(key); found {
		respondSuccess(w, http.StatusOK, cached, start, true)
		return
	}

	overview, err := h.db.GetOverview(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeDatabase, "Failed to load overview", err)
		return
	}

	if claims.IsAdmin() {
		total, err := h.users.CountUsers(r.Context())
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to count users for overview")
		} else {
			overview.TotalUsers = &total
		}
	}

	h.cache.Set(key, overview)
	respondSuccess(w, http.StatusOK, overview, start, false)
}

// ChartsProduction returns the yearly production series. All query
// parameters are optional; an omitted country or crop aggregates across
// every one.
//
// Method: GET
// Path: /api/v1/dashboard/charts/production?country=&crop=&year_from=&year_to=
func (h *Handler) ChartsProduction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	req := ProductionSeriesRequest{
		Country:  strings.ToUpper(q.Get("country")),
		Crop:     q.Get("crop"),
		YearFrom: getIntParam(r, "year_from", 0),
		YearTo:   getIntParam(r, "year_to", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}
	if req.YearFrom > 0 && req.YearTo > 0 && req.YearFrom > req.YearTo {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "year_from must not exceed year_to", nil)
		return
	}

	key := cache.GenerateKey("charts_production", req)
	if cached, found := h.cache.Get(key); found {
		respondSuccess(w, http.StatusOK, cached, start, true)
		return
	}

	series, err := h.db.GetProductionSeries(r.Context(), database.SeriesFilter{
		CountryCode: req.Country,
		CropID:      req.Crop,
		YearFrom:    req.YearFrom,
		YearTo:      req.YearTo,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeDatabase, "Failed to load production series", err)
		return
	}

	h.cache.Set(key, series)
	respondSuccess(w, http.StatusOK, series, start, false)
}

// ChartsPrices returns the average price series for a crop over a rolling
// lookback window.
//
// Method: GET
// Path: /api/v1/dashboard/charts/prices?crop=&period=
func (h *Handler) ChartsPrices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	req := PriceSeriesRequest{
		Crop:   q.Get("crop"),
		Period: q.Get("period"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	key := cache.GenerateKey("charts_prices", req)
	if cached, found := h.cache.Get(key); found {
		respondSuccess(w, http.StatusOK, cached, start, true)
		return
	}

	series, err := h.db.GetPriceSeries(r.Context(), req.Crop, req.Period)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeDatabase, "Failed to load price series", err)
		return
	}

	h.cache.Set(key, series)
	respondSuccess(w, http.StatusOK, series, start, false)
}

// MapsProduction returns production records with locations as a GeoJSON
// FeatureCollection. Records without coordinates are excluded.
//
// Method: GET
// Path: /api/v1/dashboard/maps/production?country=&crop=&year=
func (h *Handler) MapsProduction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	req := ProductionMapRequest{
		Country: strings.ToUpper(q.Get("country")),
		Crop:    q.Get("crop"),
		Year:    getIntParam(r, "year", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	key := cache.GenerateKey("maps_production", req)
	if cached, found := h.cache.Get(key); found {
		respondSuccess(w, http.StatusOK, cached, start, true)
		return
	}

	fc, err := h.db.GetProductionMap(r.Context(), database.MapFilter{
		CountryCode: req.Country,
		CropID:      req.Crop,
		Year:        req.Year,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeDatabase, "Failed to load production map", err)
		return
	}

	h.cache.Set(key, fc)
	respondSuccess(w, http.StatusOK, fc, start, false)
}
