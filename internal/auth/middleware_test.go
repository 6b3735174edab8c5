// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestMiddleware(t *testing.T) (*Middleware, *JWTManager) {
	t.Helper()
	jwtManager := newTestJWTManager(t, time.Hour, 0)
	return NewMiddleware(jwtManager, nil), jwtManager
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	m, _ := newTestMiddleware(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/overview", nil)
	rec := httptest.NewRecorder()

	m.Authenticate(okHandler)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticate_BearerHeader(t *testing.T) {
	m, jwtManager := newTestMiddleware(t)

	token, _, err := jwtManager.GenerateToken("user-1", "kodjo", "user", "TG")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	var gotClaims *Claims
	handler := m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/overview", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotClaims == nil || gotClaims.Username != "kodjo" {
		t.Errorf("claims not propagated: %+v", gotClaims)
	}
}

func TestAuthenticate_CookieFallback(t *testing.T) {
	m, jwtManager := newTestMiddleware(t)

	token, _, err := jwtManager.GenerateToken("user-1", "kodjo", "user", "")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()

	m.Authenticate(okHandler)(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	m, _ := newTestMiddleware(t)

	tests := []struct {
		name   string
		header string
	}{
		{"no scheme", "some-token"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			m.Authenticate(okHandler)(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	m, jwtManager := newTestMiddleware(t)

	userToken, _, err := jwtManager.GenerateToken("user-1", "kodjo", "user", "")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	adminToken, _, err := jwtManager.GenerateToken("admin-1", "afi", "admin", "")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"user role rejected", userToken, http.StatusForbidden},
		{"admin role allowed", adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/overview", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()

			m.RequireAdmin(okHandler)(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name           string
		trustedProxies []string
		remoteAddr     string
		xff            string
		want           string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.5:1234",
			want:       "203.0.113.5",
		},
		{
			name:       "untrusted proxy header ignored",
			remoteAddr: "203.0.113.5:1234",
			xff:        "198.51.100.7",
			want:       "203.0.113.5",
		},
		{
			name:           "trusted proxy header honored",
			trustedProxies: []string{"10.0.0.1"},
			remoteAddr:     "10.0.0.1:1234",
			xff:            "198.51.100.7",
			want:           "198.51.100.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwtManager := newTestJWTManager(t, time.Hour, 0)
			m := NewMiddleware(jwtManager, tt.trustedProxies)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}

			if got := m.GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
