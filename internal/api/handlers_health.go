// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package api

import (
	"net/http"
	"time"

	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

// Version is the reported application version.
const Version = "1.0.0"

// IngestStatus is implemented by the ingest consumer so health endpoints
// can report broker connectivity without importing the ingest package.
type IngestStatus interface {
	Connected() bool
	LastEventAt() time.Time
}

// SetIngestStatus wires the ingest consumer into the detailed health
// report. Called once during startup when ingestion is enabled.
func (h *Handler) SetIngestStatus(status IngestStatus) {
	h.ingestStatus = status
}

// Health returns basic service health.
//
// Method: GET
// Path: /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	health := models.HealthStatus{
		Status:            status,
		Version:           Version,
		DatabaseConnected: dbConnected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
//
// Method: GET
// Path: /health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 200 only when the analytics store answers a ping; 503 otherwise.
//
// Method: GET
// Path: /health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	ready := dbConnected && h.users != nil

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"database_connected": dbConnected,
			"user_store_open":    h.users != nil,
			"ready_to_serve":     ready,
			"uptime":             time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	})
}

// HealthDetailed returns an operator-facing health report with store
// record counts and ingest connectivity.
//
// Method: GET
// Path: /health/detailed
func (h *Handler) HealthDetailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dbConnected := h.db != nil && h.db.Ping(ctx) == nil

	detail := models.DetailedHealth{
		Status:            "healthy",
		Version:           Version,
		DatabaseConnected: dbConnected,
		UserStoreOpen:     h.users != nil,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.config != nil {
		detail.Environment = h.config.Server.Environment
	}
	if !dbConnected {
		detail.Status = "degraded"
	}

	if dbConnected {
		h.fillStoreCounts(r, &detail)
	}

	if h.ingestStatus != nil {
		connected := h.ingestStatus.Connected()
		detail.IngestConnected = &connected
		if last := h.ingestStatus.LastEventAt(); !last.IsZero() {
			detail.LastIngestAt = &last
		}
		if !connected {
			detail.Status = "degraded"
		}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   detail,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	})
}

// fillStoreCounts populates the record counters, logging rather than
// failing the health report when a count query errors.
func (h *Handler) fillStoreCounts(r *http.Request, detail *models.DetailedHealth) {
	ctx := r.Context()

	if n, err := h.db.CountProductionRecords(ctx); err == nil {
		detail.ProductionRecords = n
	} else {
		logging.Warn().Err(err).Msg("Failed to count production records")
	}
	if n, err := h.db.CountPriceRecords(ctx); err == nil {
		detail.PriceRecords = n
	} else {
		logging.Warn().Err(err).Msg("Failed to count price records")
	}
	if n, err := h.db.CountActiveAlerts(ctx); err == nil {
		detail.ActiveAlerts = n
	} else {
		logging.Warn().Err(err).Msg("Failed to count active alerts")
	}
	if h.users != nil {
		if n, err := h.users.CountUsers(ctx); err == nil {
			detail.RegisteredUsers = n
		} else {
			logging.Warn().Err(err).Msg("Failed to count users")
		}
	}
}
