// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for password hashing. bcrypt truncates
// input at 72 bytes, so over-long passwords are rejected up front.
const BcryptCost = 12

const maxPasswordBytes = 72

// HashPassword derives a bcrypt hash from a plaintext password.
func HashPassword(password string) ([]byte, error) {
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("password exceeds %d bytes", maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return hash, nil
}

// VerifyPassword reports whether the plaintext password matches the
// stored hash. Comparison time is constant with respect to the hash.
func VerifyPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
