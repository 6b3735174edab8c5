// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SIAKOU/Agri-Intel/internal/config"
)

// Claims represents JWT claims. The subject holds the user ID; username,
// role and country ride along so handlers can authorize without a store
// lookup on every request.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Country  string `json:"country,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims carry the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}

// JWTManager handles JWT token creation and validation using HMAC-SHA256.
// The clock is injectable so expiry behavior is testable without sleeping.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// NewJWTManager creates a token manager from the security configuration.
// The secret is stored as []byte to prevent string interning attacks.
// Secret length is enforced by config validation before this is reached.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}

	return &JWTManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		leeway: cfg.ClockSkewLeeway,
		now:    time.Now,
	}, nil
}

// SetClock overrides the time source. Tests use this to simulate expiry.
func (m *JWTManager) SetClock(now func() time.Time) {
	m.now = now
}

// TTL returns the configured token lifetime.
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// GenerateToken creates a signed token for an authenticated user. Tokens
// are stateless and cannot be revoked before expiration.
func (m *JWTManager) GenerateToken(userID, username, role, country string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := &Claims{
		Username: username,
		Role:     role,
		Country:  country,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// ValidateToken verifies a token's signature and temporal claims and
// extracts the user claims. Expired-but-otherwise-valid tokens return
// ErrTokenExpired so callers can distinguish them from tampered ones.
// Only HMAC signing methods are accepted, which blocks algorithm
// confusion attacks.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
		jwt.WithValidMethods([]string{"HS256"}),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
