// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SIAKOU/Agri-Intel/internal/auth"
	"github.com/SIAKOU/Agri-Intel/internal/cache"
	"github.com/SIAKOU/Agri-Intel/internal/config"
	"github.com/SIAKOU/Agri-Intel/internal/database"
	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/models"
	"github.com/SIAKOU/Agri-Intel/internal/userstore"
	ws "github.com/SIAKOU/Agri-Intel/internal/websocket"
)

// defaultCacheTTL is applied to dashboard aggregates when the config does
// not set one.
const defaultCacheTTL = 5 * time.Minute

// Handler contains dependencies for API handlers.
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct, constructor, WebSocket upgrade (this file)
//   - handlers_auth.go: Registration, login, current-user endpoints
//   - handlers_dashboard.go: Overview, chart and map endpoints
//   - handlers_predictions.go: Yield prediction endpoint
//   - handlers_alerts.go: Alert listing and acknowledgment
//   - handlers_health.go: Health and readiness endpoints
type Handler struct {
	db        *database.DB
	users     *userstore.Store
	config    *config.Config
	jwt       *auth.JWTManager
	authMW    *auth.Middleware
	lockout   *auth.LockoutManager
	wsHub     *ws.Hub
	cache     *cache.Cache
	startTime time.Time

	// ingestStatus is set via SetIngestStatus when ingestion is enabled.
	ingestStatus IngestStatus
}

// NewHandler creates a new API handler with all required dependencies.
// The wsHub may be nil when real-time push is disabled; the /ws endpoint
// then answers 503.
func NewHandler(db *database.DB, users *userstore.Store, cfg *config.Config, jwtManager *auth.JWTManager, lockout *auth.LockoutManager, wsHub *ws.Hub) *Handler {
	ttl := defaultCacheTTL
	if cfg != nil && cfg.API.CacheTTL > 0 {
		ttl = cfg.API.CacheTTL
	}

	var trustedProxies []string
	if cfg != nil {
		trustedProxies = cfg.Security.TrustedProxies
	}

	return &Handler{
		db:        db,
		users:     users,
		config:    cfg,
		jwt:       jwtManager,
		authMW:    auth.NewMiddleware(jwtManager, trustedProxies),
		lockout:   lockout,
		wsHub:     wsHub,
		cache:     cache.New("dashboard", ttl),
		startTime: time.Now(),
	}
}

// ClearCache invalidates all cached dashboard aggregates. The ingest
// consumer calls this after every successful write so the next dashboard
// request sees fresh data.
func (h *Handler) ClearCache() {
	if h.cache != nil {
		h.cache.Clear()
		logging.Debug().Msg("Dashboard cache cleared")
	}
}

// claimsFrom returns the authenticated claims placed in the context by the
// auth middleware. Handlers behind Authenticate can rely on ok being true.
func claimsFrom(r *http.Request) (*auth.Claims, bool) {
	return auth.ClaimsFromContext(r.Context())
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow clients.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins. Requests
// without an Origin header are allowed: browsers always send one, so an
// absent header means a non-browser client that already presented a token.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// WebSocket upgrades the connection and registers the client with the hub
// for real-time alert and data-update push.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
