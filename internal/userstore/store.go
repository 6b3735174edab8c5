// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

// Package userstore persists user accounts and credentials in BadgerDB.
// Accounts are stored under their ID with case-insensitive secondary
// indexes for email and username, so duplicate checks and logins are
// O(1) key lookups rather than scans.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/SIAKOU/Agri-Intel/internal/auth"
	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/metrics"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	userKeyPrefix     = "user:"
	emailKeyPrefix    = "email:"
	usernameKeyPrefix = "username:"
)

var (
	// ErrDuplicateIdentity is returned when the email or username is
	// already taken, compared case-insensitively.
	ErrDuplicateIdentity = errors.New("email or username already registered")

	// ErrUserNotFound is returned when no account matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned on password mismatch. It is
	// deliberately indistinguishable from an unknown username at the
	// API layer.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled is returned when the account exists but has
	// been soft-disabled.
	ErrAccountDisabled = errors.New("account disabled")
)

// RegisterParams carries the fields needed to create an account.
type RegisterParams struct {
	Email    string
	Username string
	FullName string
	Password string
	Country  string
	Language string
}

// Store is a BadgerDB-backed credential store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the user store at the given path. With
// inMemory set, nothing touches disk; tests use this mode.
func Open(path string, inMemory bool) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithInMemory(inMemory).
		WithLogger(nil)
	if inMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register creates a new account. The first account ever registered
// gets the admin role; everyone after that is a regular user. Email and
// username uniqueness is enforced case-insensitively inside a single
// transaction, so concurrent registrations cannot both claim the same
// identity.
func (s *Store) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	language := params.Language
	if language == "" {
		language = "fr"
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        params.Email,
		Username:     params.Username,
		FullName:     params.FullName,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Country:      strings.ToUpper(params.Country),
		Language:     language,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	emailKey := []byte(emailKeyPrefix + strings.ToLower(params.Email))
	usernameKey := []byte(usernameKeyPrefix + strings.ToLower(params.Username))

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey); err == nil {
			return ErrDuplicateIdentity
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check email: %w", err)
		}

		if _, err := txn.Get(usernameKey); err == nil {
			return ErrDuplicateIdentity
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check username: %w", err)
		}

		empty, err := storeIsEmpty(txn)
		if err != nil {
			return err
		}
		if empty {
			user.Role = models.RoleAdmin
		}

		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}

		userID := []byte(user.ID)
		if err := txn.Set([]byte(userKeyPrefix+user.ID), data); err != nil {
			return fmt.Errorf("set user: %w", err)
		}
		if err := txn.Set(emailKey, userID); err != nil {
			return fmt.Errorf("set email index: %w", err)
		}
		if err := txn.Set(usernameKey, userID); err != nil {
			return fmt.Errorf("set username index: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if count, err := s.CountUsers(ctx); err == nil {
		metrics.RegisteredUsers.Set(float64(count))
	}

	logging.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Msg("User registered")

	return user, nil
}

// storeIsEmpty reports whether any account exists yet.
func storeIsEmpty(txn *badger.Txn) (bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(userKeyPrefix)
	it.Seek(prefix)
	return !it.ValidForPrefix(prefix), nil
}

// FindByID retrieves an account by its ID.
func (s *Store) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindByUsername retrieves an account by username, case-insensitively.
func (s *Store) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findByIndex(ctx, usernameKeyPrefix+strings.ToLower(username))
}

// FindByEmail retrieves an account by email, case-insensitively.
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findByIndex(ctx, emailKeyPrefix+strings.ToLower(email))
}

func (s *Store) findByIndex(ctx context.Context, indexKey string) (*models.User, error) {
	var user models.User

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(indexKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get index: %w", err)
		}

		var userID string
		if err := item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		}); err != nil {
			return err
		}

		userItem, err := txn.Get([]byte(userKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		return userItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// VerifyCredentials checks a username/password pair and returns the
// account on success. Unknown usernames and wrong passwords both map to
// ErrInvalidCredentials; a correct password against a disabled account
// returns ErrAccountDisabled.
func (s *Store) VerifyCredentials(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a comparison anyway so response timing does not
			// reveal whether the username exists.
			auth.VerifyPassword([]byte("$2a$12$invalidinvalidinvalidinvalidinvalidinvalidinvalid"), password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrAccountDisabled
	}

	return user, nil
}

// UpdateLastLogin records a successful login timestamp.
func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.updateUser(id, func(user *models.User) {
		t := at.UTC()
		user.LastLogin = &t
	})
}

// Disable soft-disables an account. Existing tokens keep validating
// until expiry; login is refused immediately.
func (s *Store) Disable(ctx context.Context, id string) error {
	err := s.updateUser(id, func(user *models.User) {
		user.Active = false
	})
	if err != nil {
		return err
	}

	logging.Info().Str("user_id", id).Msg("User disabled")
	return nil
}

// Enable re-activates a disabled account.
func (s *Store) Enable(ctx context.Context, id string) error {
	return s.updateUser(id, func(user *models.User) {
		user.Active = true
	})
}

func (s *Store) updateUser(id string, mutate func(*models.User)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(userKeyPrefix + id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		var user models.User
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		}); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}

		mutate(&user)

		data, err := json.Marshal(&user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}

		return txn.Set(key, data)
	})
}

// CountUsers returns the number of registered accounts.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}
