// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package models

import (
	"time"
)

// User roles. The platform uses a two-tier model: admins see cross-country
// aggregates and user statistics, standard users see data scoped to their
// registered country.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a registered platform user.
//
// PasswordHash is the bcrypt hash of the user's password; the clear password
// is never persisted. The json:"-" tag keeps the hash out of every API
// response.
//
// Users are never physically deleted: Active=false soft-disables the account
// and blocks login while preserving the audit trail.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	FullName     string     `json:"full_name"`
	PasswordHash []byte     `json:"-"`
	Role         string     `json:"role"`
	Country      string     `json:"country"`
	Language     string     `json:"language"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response body for a successful login.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}

// RegisterRequest is the request body for POST /api/v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Country  string `json:"country"`
	Language string `json:"language"`
}
