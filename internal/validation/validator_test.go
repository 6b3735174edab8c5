// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package validation

import (
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}

	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type registrationStruct struct {
	Email    string `validate:"required,email"`
	Username string `validate:"required,min=3,max=32,alphanum"`
	Password string `validate:"required,password"`
	Country  string `validate:"omitempty,wa_country_code"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input registrationStruct
	}{
		{
			name: "all valid fields",
			input: registrationStruct{
				Email:    "kodjo@example.tg",
				Username: "kodjo",
				Password: "harvest2026",
				Country:  "TG",
			},
		},
		{
			name: "optional country omitted",
			input: registrationStruct{
				Email:    "ama@example.gh",
				Username: "ama99",
				Password: "cocoa1234",
			},
		},
		{
			name: "password exactly at minimum length",
			input: registrationStruct{
				Email:    "a@b.co",
				Username: "abc",
				Password: "abcdefg1",
				Country:  "CI",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(&tt.input); err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     registrationStruct
		wantField string
		wantTag   string
	}{
		{
			name: "missing email",
			input: registrationStruct{
				Username: "kodjo",
				Password: "harvest2026",
			},
			wantField: "Email",
			wantTag:   "required",
		},
		{
			name: "password too short",
			input: registrationStruct{
				Email:    "kodjo@example.tg",
				Username: "kodjo",
				Password: "ab1",
			},
			wantField: "Password",
			wantTag:   "password",
		},
		{
			name: "password without digit",
			input: registrationStruct{
				Email:    "kodjo@example.tg",
				Username: "kodjo",
				Password: "harvesttime",
			},
			wantField: "Password",
			wantTag:   "password",
		},
		{
			name: "lowercase country code",
			input: registrationStruct{
				Email:    "kodjo@example.tg",
				Username: "kodjo",
				Password: "harvest2026",
				Country:  "tg",
			},
			wantField: "Country",
			wantTag:   "wa_country_code",
		},
		{
			name: "three-letter country code",
			input: registrationStruct{
				Email:    "kodjo@example.tg",
				Username: "kodjo",
				Password: "harvest2026",
				Country:  "TGO",
			},
			wantField: "Country",
			wantTag:   "wa_country_code",
		},
		{
			name: "username with spaces",
			input: registrationStruct{
				Email:    "kodjo@example.tg",
				Username: "ko djo",
				Password: "harvest2026",
			},
			wantField: "Username",
			wantTag:   "alphanum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() expected error, got nil")
			}

			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 validation error, got %d: %v", len(errs), err)
			}

			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single error has field details", func(t *testing.T) {
		input := registrationStruct{
			Email:    "not-an-email",
			Username: "kodjo",
			Password: "harvest2026",
		}

		err := ValidateStruct(&input)
		if err == nil {
			t.Fatal("expected validation error")
		}

		apiErr := err.ToAPIError()
		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
		}
		if apiErr.Details["field"] != "Email" {
			t.Errorf("Details[field] = %v, want Email", apiErr.Details["field"])
		}
	})

	t.Run("multiple errors list all fields", func(t *testing.T) {
		input := registrationStruct{}

		err := ValidateStruct(&input)
		if err == nil {
			t.Fatal("expected validation error")
		}

		apiErr := err.ToAPIError()
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok {
			t.Fatalf("Details[fields] has unexpected type %T", apiErr.Details["fields"])
		}
		if len(fields) != 3 {
			t.Errorf("expected 3 field errors, got %d", len(fields))
		}
	})
}
