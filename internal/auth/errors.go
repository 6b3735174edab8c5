// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package auth

import "errors"

var (
	// ErrTokenExpired is returned when a token's signature is valid but
	// its expiry has passed beyond the configured leeway.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for malformed, tampered or otherwise
	// unverifiable tokens.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrLockoutNotFound is returned when a lockout entry doesn't exist.
	ErrLockoutNotFound = errors.New("lockout entry not found")

	// ErrAccountLocked is returned when authentication is blocked due to lockout.
	ErrAccountLocked = errors.New("account temporarily locked due to too many failed attempts")
)
