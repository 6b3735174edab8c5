// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package api

import (
	"net/http"
	"testing"

	"github.com/goccy/go-json"

	"github.com/SIAKOU/Agri-Intel/internal/models"
)

func TestRegister_FirstUserBecomesAdmin(t *testing.T) {
	env := setupTestEnv(t)

	rec, env1 := env.doRequest(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "kwame",
		"email":    "kwame@example.com",
		"password": "harvest2026",
		"country":  "gh",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (error: %+v)", rec.Code, http.StatusCreated, env1.Error)
	}

	var user models.User
	if err := json.Unmarshal(env1.Data, &user); err != nil {
		t.Fatalf("Failed to decode user: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("First user role = %q, want %q", user.Role, models.RoleAdmin)
	}
	if user.Country != "GH" {
		t.Errorf("Country = %q, want uppercased %q", user.Country, "GH")
	}

	env.registerUser(t, "afi", "afi@example.com", "marche2026", "TG")
	rec2, env2 := env.doRequest(t, http.MethodGet, "/api/v1/auth/me", env.loginUser(t, "afi", "marche2026"), nil)
	if rec2.Code != http.StatusOK {
		t.Fatalf("me status = %d, want %d", rec2.Code, http.StatusOK)
	}
	var second models.User
	if err := json.Unmarshal(env2.Data, &second); err != nil {
		t.Fatalf("Failed to decode user: %v", err)
	}
	if second.Role != models.RoleUser {
		t.Errorf("Second user role = %q, want %q", second.Role, models.RoleUser)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"username": "kwame", "password": "harvest2026"}},
		{"bad email", map[string]string{"username": "kwame", "email": "not-an-email", "password": "harvest2026"}},
		{"short password", map[string]string{"username": "kwame", "email": "k@example.com", "password": "abc1"}},
		{"password without digit", map[string]string{"username": "kwame", "email": "k@example.com", "password": "harvestseason"}},
		{"short username", map[string]string{"username": "ab", "email": "k@example.com", "password": "harvest2026"}},
		{"bad country", map[string]string{"username": "kwame", "email": "k@example.com", "password": "harvest2026", "country": "ghana"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, got := env.doRequest(t, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if got.Error == nil || got.Error.Code != models.ErrCodeValidation {
				t.Errorf("error = %+v, want code %s", got.Error, models.ErrCodeValidation)
			}
		})
	}
}

func TestRegister_DuplicateIdentity(t *testing.T) {
	env := setupTestEnv(t)
	env.registerUser(t, "kwame", "kwame@example.com", "harvest2026", "GH")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"same email different case", map[string]string{"username": "other", "email": "KWAME@example.com", "password": "harvest2026"}},
		{"same username different case", map[string]string{"username": "Kwame", "email": "new@example.com", "password": "harvest2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, got := env.doRequest(t, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			if rec.Code != http.StatusConflict {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
			}
			if got.Error == nil || got.Error.Code != models.ErrCodeDuplicateIdentity {
				t.Errorf("error = %+v, want code %s", got.Error, models.ErrCodeDuplicateIdentity)
			}
		})
	}
}

func TestLogin_Flow(t *testing.T) {
	env := setupTestEnv(t)
	env.registerUser(t, "kwame", "kwame@example.com", "harvest2026", "GH")

	t.Run("success sets cookie and returns token", func(t *testing.T) {
		rec, got := env.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"username": "kwame",
			"password": "harvest2026",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (error: %+v)", rec.Code, http.StatusOK, got.Error)
		}

		var login models.LoginResponse
		if err := json.Unmarshal(got.Data, &login); err != nil {
			t.Fatalf("Failed to decode login response: %v", err)
		}
		if login.AccessToken == "" {
			t.Error("Expected non-empty access token")
		}
		if login.TokenType != "bearer" {
			t.Errorf("TokenType = %q, want %q", login.TokenType, "bearer")
		}
		if login.User == nil || login.User.Username != "kwame" {
			t.Errorf("Unexpected user in response: %+v", login.User)
		}

		var tokenCookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == "token" {
				tokenCookie = c
			}
		}
		if tokenCookie == nil {
			t.Fatal("Expected token cookie to be set")
		}
		if !tokenCookie.HttpOnly {
			t.Error("Expected HttpOnly token cookie")
		}
	})

	t.Run("wrong password returns 401 without token", func(t *testing.T) {
		rec, got := env.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"username": "kwame",
			"password": "wrongpass1",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if got.Error == nil || got.Error.Code != models.ErrCodeInvalidCredentials {
			t.Errorf("error = %+v, want code %s", got.Error, models.ErrCodeInvalidCredentials)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("Expected no cookies on failed login")
		}
	})

	t.Run("unknown user gets same answer as wrong password", func(t *testing.T) {
		rec, got := env.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"username": "nobody",
			"password": "whatever1",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if got.Error == nil || got.Error.Code != models.ErrCodeInvalidCredentials {
			t.Errorf("error = %+v, want code %s", got.Error, models.ErrCodeInvalidCredentials)
		}
	})
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	env := setupTestEnv(t)
	env.registerUser(t, "kwame", "kwame@example.com", "harvest2026", "GH")

	// The test lockout config allows 3 attempts. The third failure locks.
	for i := 0; i < 2; i++ {
		rec, _ := env.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"username": "kwame",
			"password": "wrongpass1",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, rec.Code, http.StatusUnauthorized)
		}
	}

	rec, got := env.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "kwame",
		"password": "wrongpass1",
	})
	if rec.Code != http.StatusLocked {
		t.Fatalf("locking attempt: status = %d, want %d", rec.Code, http.StatusLocked)
	}
	if got.Error == nil || got.Error.Code != models.ErrCodeAccountLocked {
		t.Errorf("error = %+v, want code %s", got.Error, models.ErrCodeAccountLocked)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on lockout response")
	}

	// Correct credentials are also refused while locked. Case-insensitive:
	// attempts against a different casing hit the same lock.
	rec2, _ := env.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "Kwame",
		"password": "harvest2026",
	})
	if rec2.Code != http.StatusLocked {
		t.Errorf("login while locked: status = %d, want %d", rec2.Code, http.StatusLocked)
	}
}

func TestMe_RequiresAuthentication(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, got := env.doRequest(t, http.MethodGet, "/api/v1/auth/me", tt.token, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if got.Error == nil || got.Error.Code != models.ErrCodeUnauthorized {
				t.Errorf("error = %+v, want code %s", got.Error, models.ErrCodeUnauthorized)
			}
		})
	}
}

func TestMe_ReturnsAccountWithoutHash(t *testing.T) {
	env := setupTestEnv(t)
	env.registerUser(t, "kwame", "kwame@example.com", "harvest2026", "GH")
	token := env.loginUser(t, "kwame", "harvest2026")

	rec, got := env.doRequest(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (error: %+v)", rec.Code, http.StatusOK, got.Error)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(got.Data, &raw); err != nil {
		t.Fatalf("Failed to decode user: %v", err)
	}
	if raw["username"] != "kwame" {
		t.Errorf("username = %v, want kwame", raw["username"])
	}
	for _, forbidden := range []string{"password", "password_hash", "PasswordHash"} {
		if _, ok := raw[forbidden]; ok {
			t.Errorf("Response leaks %q field", forbidden)
		}
	}
}
