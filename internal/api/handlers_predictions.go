// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SIAKOU/Agri-Intel/internal/database"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

// YieldPrediction returns the latest model-generated yield estimate for a
// country/crop pair.
//
// Method: GET
// Path: /api/v1/predictions/yield/{country}/{crop}
//
// Responses:
//   - 200 with the latest prediction by generated_at
//   - 404 NOT_FOUND when no prediction has been computed for the pair
func (h *Handler) YieldPrediction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := PredictionRequest{
		Country: strings.ToUpper(chi.URLParam(r, "country")),
		Crop:    chi.URLParam(r, "crop"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	prediction, err := h.db.GetYieldPrediction(r.Context(), req.Country, req.Crop)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, models.ErrCodeNotFound,
				"No yield prediction for "+req.Country+"/"+sanitizeLogValue(req.Crop), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, models.ErrCodeDatabase, "Failed to load prediction", err)
		return
	}

	respondSuccess(w, http.StatusOK, prediction, start, false)
}
