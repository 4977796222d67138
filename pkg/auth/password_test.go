package auth

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{
			name:       "valid strong password",
			password:   "SecureP@ss123",
			shouldFail: false,
		},
		{
			name:       "valid without special char",
			password:   "SecurePass123",
			shouldFail: false,
		},
		{
			name:       "too short",
			password:   "Pass@1",
			shouldFail: true,
		},
		{
			name:       "missing uppercase",
			password:   "securepass123",
			shouldFail: true,
		},
		{
			name:       "missing lowercase",
			password:   "SECUREPASS123",
			shouldFail: true,
		},
		{
			name:       "missing digit",
			password:   "SecurePassXyz",
			shouldFail: true,
		},
		{
			name:       "too long",
			password:   "Aa1" + strings.Repeat("x", 130),
			shouldFail: true,
		},
		{
			name:       "common password",
			password:   "Passw0rd",
			shouldFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.shouldFail && err == nil {
				t.Errorf("expected password %q to fail validation", tt.password)
			}
			if !tt.shouldFail && err != nil {
				t.Errorf("expected password %q to pass validation, got %v", tt.password, err)
			}
		})
	}
}

func TestValidatePassword_GenericErrorMessage(t *testing.T) {
	err := ValidatePassword("weak")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if err.Error() != "invalid password" {
		t.Errorf("validation error must not leak requirements, got %q", err.Error())
	}
}

func TestHashAndComparePassword(t *testing.T) {
	password := "SecureP@ss123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == password {
		t.Fatal("hash must not equal the plaintext password")
	}

	if err := ComparePassword(hash, password); err != nil {
		t.Errorf("correct password should compare successfully: %v", err)
	}
	if err := ComparePassword(hash, "WrongP@ss123"); err == nil {
		t.Error("wrong password should not compare successfully")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("hashing an empty password should fail")
	}
}
