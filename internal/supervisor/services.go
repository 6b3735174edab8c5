// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

// This file contains service wrappers that adapt application components to
// the suture.Service interface. Each wrapper implements
// Serve(context.Context) error and handles graceful shutdown on context
// cancellation, so the supervisor tree can restart a crashed component
// without touching the rest of the process.

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SIAKOU/Agri-Intel/internal/logging"
	ws "github.com/SIAKOU/Agri-Intel/internal/websocket"
)

// HTTPService runs the HTTP server as a supervised service. The underlying
// http.Server is constructed inside Serve so a supervisor restart gets a
// fresh listener (a Server cannot be reused after Shutdown).
type HTTPService struct {
	addr           string
	handler        http.Handler
	requestTimeout time.Duration
	drainTimeout   time.Duration
}

// NewHTTPService creates an HTTP service listening on addr. requestTimeout
// bounds read/write per request; drainTimeout bounds graceful shutdown.
func NewHTTPService(addr string, handler http.Handler, requestTimeout, drainTimeout time.Duration) *HTTPService {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	return &HTTPService{
		addr:           addr,
		handler:        handler,
		requestTimeout: requestTimeout,
		drainTimeout:   drainTimeout,
	}
}

// Serve implements suture.Service. It blocks until the server fails or the
// context is canceled, then drains in-flight requests.
func (s *HTTPService) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.requestTimeout,
		// WriteTimeout stays above ReadTimeout so slow queries can still
		// flush their response.
		WriteTimeout: s.requestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("HTTP server drain exceeded timeout, forcing close")
		_ = server.Close()
	}
	<-errCh

	logging.Info().Msg("HTTP server stopped")
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *HTTPService) String() string {
	return "http-server"
}

// HubService runs the WebSocket hub as a supervised service.
type HubService struct {
	hub *ws.Hub
}

// NewHubService wraps the given hub.
func NewHubService(hub *ws.Hub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String identifies the service in supervisor logs.
func (s *HubService) String() string {
	return "websocket-hub"
}
