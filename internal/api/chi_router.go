// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

// Package api provides HTTP routing using the Chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SIAKOU/Agri-Intel/internal/middleware"
)

// Router wires handlers, authentication and the chi middleware stack.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for the given handler. The middleware config
// is derived from the handler's loaded configuration when nil.
func NewRouter(handler *Handler, mwConfig *ChiMiddlewareConfig) *Router {
	if mwConfig == nil {
		mwConfig = DefaultChiMiddlewareConfig()
		if cfg := handler.config; cfg != nil {
			mwConfig.CORSAllowedOrigins = cfg.Security.CORSOrigins
			if cfg.Security.RateLimitReqs > 0 {
				mwConfig.RateLimitRequests = cfg.Security.RateLimitReqs
			}
			if cfg.Security.RateLimitWindow > 0 {
				mwConfig.RateLimitWindow = cfg.Security.RateLimitWindow
			}
			mwConfig.RateLimitDisabled = cfg.Security.RateLimitDisabled
		}
	}

	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so the auth and metrics middleware can
// be used with r.Use().
func chiMiddlewareFunc(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
//
// Route groups and their protections:
//   - /health/*: no auth, permissive rate limit
//   - /metrics: no auth (expected to be firewalled at deploy time)
//   - /api/v1/auth: strict rate limit, login stricter still
//   - /api/v1/*: bearer token required, standard rate limit
//   - /api/v1/dashboard/*: bearer token, permissive rate limit, cached
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.StripSlashes)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight works

	authenticate := chiMiddlewareFunc(router.handler.authMW.Authenticate)
	prometheusMetrics := chiMiddlewareFunc(middleware.PrometheusMetrics)

	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealthGroup())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/detailed", router.handler.HealthDetailed)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitAuthGroup())
		r.Use(APISecurityHeaders())
		r.Use(prometheusMetrics)

		r.Post("/register", router.handler.Register)
		r.With(router.chiMiddleware.RateLimitLoginRoute()).Post("/login", router.handler.Login)
		r.With(authenticate).Get("/me", router.handler.Me)
	})

	r.Route("/api/v1/dashboard", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitDashboardGroup())
		r.Use(APISecurityHeaders())
		r.Use(prometheusMetrics)
		r.Use(authenticate)

		r.Get("/overview", router.handler.Overview)
		r.Get("/charts/production", router.handler.ChartsProduction)
		r.Get("/charts/prices", router.handler.ChartsPrices)
		r.Get("/maps/production", router.handler.MapsProduction)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(prometheusMetrics)
		r.Use(authenticate)

		r.Get("/predictions/yield/{country}/{crop}", router.handler.YieldPrediction)
		r.Get("/alerts", router.handler.Alerts)
		r.Post("/alerts/{id}/ack", router.handler.AcknowledgeAlert)
		r.Get("/ws", router.handler.WebSocket)
	})

	return r
}
