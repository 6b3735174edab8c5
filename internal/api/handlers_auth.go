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

	"github.com/goccy/go-json"

	"github.com/SIAKOU/Agri-Intel/internal/auth"
	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/metrics"
	"github.com/SIAKOU/Agri-Intel/internal/models"
	"github.com/SIAKOU/Agri-Intel/internal/userstore"
)

// Register handles new account creation.
//
// Method: POST
// Path: /api/v1/auth/register
//
// Responses:
//   - 201 with the created user (password hash never serialized)
//   - 400 VALIDATION_ERROR on malformed fields
//   - 409 DUPLICATE_IDENTITY when the email or username is taken,
//     compared case-insensitively
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RecordRegistration("invalid")
		respondError(w, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid request body", err)
		return
	}
	req.Country = strings.ToUpper(req.Country)

	validationReq := RegisterRequestValidation{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
		Country:  req.Country,
		Language: req.Language,
	}
	if apiErr := validateRequest(&validationReq); apiErr != nil {
		metrics.RecordRegistration("invalid")
		respondValidationError(w, apiErr)
		return
	}

	user, err := h.users.Register(r.Context(), userstore.RegisterParams{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
		Country:  req.Country,
		Language: req.Language,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateIdentity) {
			metrics.RecordRegistration("duplicate")
			respondError(w, http.StatusConflict, models.ErrCodeDuplicateIdentity, "Email or username already registered", nil)
			return
		}
		metrics.RecordRegistration("error")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Registration failed", err)
		return
	}

	metrics.RecordRegistration("success")
	logging.Info().
		Str("user_id", user.ID).
		Str("username", sanitizeLogValue(user.Username)).
		Str("role", user.Role).
		Msg("User registered")

	respondSuccess(w, http.StatusCreated, user, start, false)
}

// Login handles user authentication requests.
//
// Method: POST
// Path: /api/v1/auth/login
//
// On success the token is returned in the body and set as an HttpOnly
// cookie. Failed attempts feed the lockout manager; once the account is
// locked the endpoint answers 423 with a Retry-After header until the
// lockout expires.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid request body", err)
		return
	}

	validationReq := LoginRequestValidation{
		Username: req.Username,
		Password: req.Password,
	}
	if apiErr := validateRequest(&validationReq); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	// Lockout subjects are lowercased so attempts against "Afi" and
	// "afi" count against the same account.
	subject := strings.ToLower(req.Username)

	if locked, remaining, err := h.lockout.CheckLocked(r.Context(), subject); err == nil && locked {
		metrics.RecordAuthAttempt("locked")
		auth.WriteLockoutResponse(w, remaining)
		return
	}

	user, err := h.users.VerifyCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleFailedLogin(w, r, subject, err)
		return
	}

	if err := h.lockout.RecordSuccessfulLogin(r.Context(), subject); err != nil {
		logging.Warn().Err(err).Msg("Failed to clear lockout state after login")
	}

	token, expiresAt, err := h.jwt.GenerateToken(user.ID, user.Username, user.Role, user.Country)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to generate authentication token", err)
		return
	}

	if err := h.users.UpdateLastLogin(r.Context(), user.ID, time.Now().UTC()); err != nil {
		logging.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to record last login")
	}

	metrics.RecordAuthAttempt("success")
	h.setAuthCookie(w, r, token, expiresAt)

	respondSuccess(w, http.StatusOK, models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, start, false)
}

// handleFailedLogin records the failed attempt and answers either 401 or,
// when this attempt crossed the threshold, 423.
func (h *Handler) handleFailedLogin(w http.ResponseWriter, r *http.Request, subject string, verifyErr error) {
	if errors.Is(verifyErr, userstore.ErrAccountDisabled) {
		metrics.RecordAuthAttempt("disabled")
		respondError(w, http.StatusUnauthorized, models.ErrCodeAccountDisabled, "Account is disabled", nil)
		return
	}

	metrics.RecordAuthAttempt("failure")
	ip := h.authMW.GetClientIP(r)

	locked, remaining, err := h.lockout.RecordFailedAttempt(r.Context(), subject, ip)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to record login attempt")
	}
	if locked {
		auth.WriteLockoutResponse(w, remaining)
		return
	}

	// Unknown user and wrong password get the same answer.
	respondError(w, http.StatusUnauthorized, models.ErrCodeInvalidCredentials, "Invalid username or password", nil)
}

// setAuthCookie sets the authentication cookie
func (h *Handler) setAuthCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

// Me returns the authenticated user's account.
//
// Method: GET
// Path: /api/v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	claims, ok := claimsFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required", nil)
		return
	}

	user, err := h.users.FindByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Account no longer exists", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to load account", err)
		return
	}

	respondSuccess(w, http.StatusOK, user, start, false)
}
