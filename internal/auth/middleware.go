// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/metrics"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

type contextKey string

// ClaimsContextKey is the request context key under which the
// authenticated user's claims are stored.
const ClaimsContextKey contextKey = "claims"

// Middleware provides authentication middleware backed by the JWT manager.
type Middleware struct {
	jwtManager     *JWTManager
	trustedProxies map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(jwtManager *JWTManager, trustedProxies []string) *Middleware {
	trustedMap := make(map[string]bool)
	for _, proxy := range trustedProxies {
		trustedMap[proxy] = true
	}

	return &Middleware{
		jwtManager:     jwtManager,
		trustedProxies: trustedMap,
	}
}

// Authenticate enforces a valid token on the wrapped handler. The token
// is read from the Authorization header first, then from the "token"
// cookie. On success the claims are placed in the request context.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := m.extractToken(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			if err == ErrTokenExpired {
				metrics.RecordTokenValidation("expired")
				writeAuthError(w, http.StatusUnauthorized, models.ErrCodeTokenExpired, "Token expired")
				return
			}
			metrics.RecordTokenValidation("invalid")
			logging.Debug().Err(err).Msg("Token validation failed")
			writeAuthError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid token")
			return
		}

		metrics.RecordTokenValidation("valid")
		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin enforces authentication and the admin role.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, models.ErrCodeForbidden, "Admin role required")
			return
		}
		next(w, r)
	})
}

// ClaimsFromContext extracts the authenticated claims from a request
// context. The boolean is false on unauthenticated requests.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}

// extractToken extracts the token from the Authorization header or the
// "token" cookie.
func (m *Middleware) extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie("token")
		if err != nil {
			return "", fmt.Errorf("missing token")
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header")
	}

	return parts[1], nil
}

// SecurityHeaders adds baseline security headers to all responses.
func (m *Middleware) SecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next(w, r)
	}
}

// GetClientIP extracts the client IP address from the request. Forwarding
// headers are honored only when the direct peer is a trusted proxy.
func (m *Middleware) GetClientIP(r *http.Request) string {
	remoteIP := strings.Split(r.RemoteAddr, ":")[0]

	if len(m.trustedProxies) == 0 || !m.trustedProxies[remoteIP] {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if clientIP := strings.TrimSpace(ips[0]); clientIP != "" {
			return clientIP
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return remoteIP
}

// WriteLockoutResponse writes a standardized lockout response.
func WriteLockoutResponse(w http.ResponseWriter, remaining time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(remaining.Seconds())))
	w.WriteHeader(http.StatusLocked)

	resp := models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    models.ErrCodeAccountLocked,
			Message: fmt.Sprintf("Too many failed attempts. Try again in %v", remaining.Round(time.Second)),
			Details: map[string]interface{}{
				"retry_after_secs": int(remaining.Seconds()),
			},
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Error encoding lockout response")
	}
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Error encoding auth error response")
	}
}
