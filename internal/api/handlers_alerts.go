// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SIAKOU/Agri-Intel/internal/database"
	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

// Alerts lists alerts, newest first.
//
// Method: GET
// Path: /api/v1/alerts?severity=&active=&limit=
//
// Admins see every alert and may narrow with ?country=. Non-admin users
// are always scoped to their registered country; a country parameter from
// them is ignored rather than rejected, and users without a registered
// country get an empty list.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required", nil)
		return
	}

	req := AlertsRequest{
		Severity: q.Get("severity"),
		Limit:    getIntParam(r, "limit", 100),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	filter := database.AlertFilter{
		Severity:   req.Severity,
		OnlyActive: q.Get("active") == "true",
		Limit:      req.Limit,
	}
	if claims.IsAdmin() {
		filter.CountryCode = strings.ToUpper(q.Get("country"))
	} else {
		// Country is optional at registration. A user without one has no
		// scope, not a global one.
		if claims.Country == "" {
			respondSuccess(w, http.StatusOK, []models.Alert{}, start, false)
			return
		}
		filter.CountryCode = claims.Country
	}

	alerts, err := h.db.GetAlerts(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeDatabase, "Failed to load alerts", err)
		return
	}

	respondSuccess(w, http.StatusOK, alerts, start, false)
}

// AcknowledgeAlert marks an alert as acknowledged.
//
// Method: POST
// Path: /api/v1/alerts/{id}/ack
//
// Acknowledging an already-acknowledged alert succeeds and returns the
// unchanged alert; an unknown id answers 404.
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Alert id must be an integer", nil)
		return
	}

	alert, err := h.db.AcknowledgeAlert(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Alert not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, models.ErrCodeDatabase, "Failed to acknowledge alert", err)
		return
	}

	if claims, ok := claimsFrom(r); ok {
		logging.Info().
			Str("user_id", claims.Subject).
			Int64("alert_id", id).
			Msg("Alert acknowledged")
	}

	respondSuccess(w, http.StatusOK, alert, start, false)
}
