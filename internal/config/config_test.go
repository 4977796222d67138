package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTOTPEncryptionKey(t *testing.T) {
	t.Run("valid 32-byte hex key", func(t *testing.T) {
		raw := strings.Repeat("ab", 32)
		key, err := parseTOTPEncryptionKey(raw)
		require.NoError(t, err)
		assert.Len(t, key, 32)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := parseTOTPEncryptionKey("")
		assert.Error(t, err)
	})

	t.Run("not hex", func(t *testing.T) {
		_, err := parseTOTPEncryptionKey(strings.Repeat("zz", 32))
		assert.Error(t, err)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := parseTOTPEncryptionKey("abcdef")
		assert.Error(t, err)
	})
}

func TestValidateSessionSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		env     string
		wantErr bool
	}{
		{"valid dev secret", "development-secret", "development", false},
		{"short dev secret", "tooshort", "development", true},
		{"valid prod secret", strings.Repeat("a", 32), "production", false},
		{"dev-length secret rejected in prod", strings.Repeat("a", 20), "production", true},
		{"weak value rejected", "changeme", "development", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSessionSecret(tt.secret, tt.env)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "development-secret")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("TOTP_ENCRYPTION_KEY", strings.Repeat("0f", 32))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionExpiry)
	assert.Equal(t, 120*time.Second, cfg.Auth.ChallengeTTL)
	assert.Equal(t, 5, cfg.Auth.IPMaxFailures)
	assert.Equal(t, 60*time.Second, cfg.Auth.IPWindow)
	assert.Equal(t, 10, cfg.Auth.EmailMaxFailures)
	assert.Equal(t, time.Hour, cfg.Auth.EmailWindow)
	assert.Equal(t, 10, cfg.Auth.LockoutThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LockoutDuration)
	assert.Equal(t, "localhive", cfg.Auth.TOTPIssuer)
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("TOTP_ENCRYPTION_KEY", strings.Repeat("0f", 32))

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "postgres",
		Password: "pw", Name: "localhive", SSLMode: "disable",
	}
	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=localhive")
	assert.Contains(t, dsn, "sslmode=disable")
}
