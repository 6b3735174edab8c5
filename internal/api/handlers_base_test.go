// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/SIAKOU/Agri-Intel/internal/auth"
	"github.com/SIAKOU/Agri-Intel/internal/config"
	"github.com/SIAKOU/Agri-Intel/internal/database"
	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/userstore"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "error",
		Format: "console",
		Output: io.Discard,
	})
}

// In-memory DuckDB creation is serialized: concurrent instantiation of the
// embedded engine has caused intermittent CI hangs.
var (
	testDBSemaphore = make(chan struct{}, 1)
	testDBMutex     sync.Mutex
)

const testJWTSecret = "test-secret-key-at-least-32-chars-long!"

// testEnv bundles the full API stack backed by in-memory stores.
type testEnv struct {
	handler *Handler
	server  http.Handler
	db      *database.DB
	users   *userstore.Store
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		Security: config.SecurityConfig{
			JWTSecret:       testJWTSecret,
			TokenTTL:        time.Hour,
			ClockSkewLeeway: 5 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		API: config.APIConfig{CacheTTL: time.Minute},
	}
}

// setupTestEnv builds a handler and router over in-memory DuckDB and
// Badger stores. Rate limiting stays disabled so tests can hammer login.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	testDBMutex.Lock()
	defer testDBMutex.Unlock()

	db, err := database.New(&config.DatabaseConfig{
		Path:              ":memory:",
		MaxMemory:         "1GB",
		Threads:           2,
		SeedReferenceData: true,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	users, err := userstore.Open("", true)
	if err != nil {
		t.Fatalf("Failed to open test user store: %v", err)
	}
	t.Cleanup(func() { _ = users.Close() })

	cfg := testConfig()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("Failed to create JWT manager: %v", err)
	}

	lockout := auth.NewLockoutManager(auth.NewMemoryLockoutStore(), &auth.LockoutConfig{
		MaxAttempts:     3,
		LockoutDuration: time.Minute,
		CleanupInterval: time.Minute,
		Enabled:         true,
	})

	handler := NewHandler(db, users, cfg, jwtManager, lockout, nil)
	t.Cleanup(handler.cache.Close)

	router := NewRouter(handler, &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		RateLimitDisabled:  true,
	})

	return &testEnv{
		handler: handler,
		server:  router.SetupChi(),
		db:      db,
		users:   users,
	}
}

// envelope mirrors models.APIResponse with raw data for per-test decoding.
type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata envelopeMeta    `json:"metadata"`
	Error    *envelopeError  `json:"error"`
}

type envelopeMeta struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms"`
	Cached      bool      `json:"cached"`
}

type envelopeError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// doRequest performs a request against the test router and decodes the
// response envelope.
func (e *testEnv) doRequest(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)

	var env envelope
	if len(rec.Body.Bytes()) > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("Failed to decode response envelope: %v\nbody: %s", err, rec.Body.String())
		}
	}

	return rec, &env
}

// registerUser registers an account through the API and fails the test on
// any non-201 answer.
func (e *testEnv) registerUser(t *testing.T, username, email, password, country string) {
	t.Helper()

	rec, env := e.doRequest(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
		"country":  country,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Register %s: status = %d, want %d (error: %+v)", username, rec.Code, http.StatusCreated, env.Error)
	}
}

// loginUser logs in through the API and returns the access token.
func (e *testEnv) loginUser(t *testing.T, username, password string) string {
	t.Helper()

	rec, env := e.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Login %s: status = %d, want %d (error: %+v)", username, rec.Code, http.StatusOK, env.Error)
	}

	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &login); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	if login.AccessToken == "" {
		t.Fatal("Login returned empty access token")
	}
	return login.AccessToken
}
