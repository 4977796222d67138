package services

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jthurman/localhive/internal/auth"
	"github.com/jthurman/localhive/internal/models"
)

type totpFixture struct {
	users *MockUserRepository
	totp  *auth.TOTPManager
	svc   *TOTPService
}

func newTOTPFixture(t *testing.T) *totpFixture {
	t.Helper()

	tm, err := auth.NewTOTPManager([]byte("0123456789abcdef0123456789abcdef"), "localhive")
	require.NoError(t, err)

	f := &totpFixture{
		users: &MockUserRepository{},
		totp:  tm,
	}
	f.svc = NewTOTPService(f.users, tm, discardLogger(), discardAuditLogger())
	return f
}

func TestSetupStoresEncryptedDisabledSecret(t *testing.T) {
	f := newTOTPFixture(t)
	user := testUser(t, "Sup3rSecret")

	f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
		return user, nil
	}
	var storedEnc, storedNonce []byte
	f.users.SetTOTPSecretFunc = func(ctx context.Context, id string, encrypted, nonce []byte) error {
		storedEnc = encrypted
		storedNonce = nonce
		return nil
	}

	resp, err := f.svc.Setup(context.Background(), user.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Secret)
	assert.Contains(t, resp.ProvisioningURI, "otpauth://totp/")
	assert.Contains(t, resp.ProvisioningURI, "localhive")
	assert.NotEmpty(t, resp.QRCode)

	// The persisted ciphertext decrypts back to the secret handed to the user
	require.NotEmpty(t, storedEnc)
	decrypted, err := f.totp.DecryptSecret(storedEnc, storedNonce)
	require.NoError(t, err)
	assert.Equal(t, resp.Secret, decrypted)
}

func TestEnableRequiresValidCode(t *testing.T) {
	f := newTOTPFixture(t)
	user := testUser(t, "Sup3rSecret")
	secret := withTOTPSecret(t, f, user)
	user.TOTPEnabled = false

	f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
		return user, nil
	}

	t.Run("wrong code leaves it disabled", func(t *testing.T) {
		f.users.SetTOTPEnabledFunc = func(ctx context.Context, id string, enabled bool) error {
			t.Fatal("must not enable on a rejected code")
			return nil
		}
		err := f.svc.Enable(context.Background(), user.ID, "000000")
		assert.ErrorIs(t, err, models.ErrTOTPInvalidCode)
	})

	t.Run("valid code enables", func(t *testing.T) {
		enabled := false
		f.users.SetTOTPEnabledFunc = func(ctx context.Context, id string, on bool) error {
			enabled = on
			return nil
		}

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		require.NoError(t, f.svc.Enable(context.Background(), user.ID, code))
		assert.True(t, enabled)
	})
}

func TestEnableWithoutSetup(t *testing.T) {
	f := newTOTPFixture(t)
	user := testUser(t, "Sup3rSecret")

	f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
		return user, nil
	}

	err := f.svc.Enable(context.Background(), user.ID, "123456")
	assert.ErrorIs(t, err, models.ErrTOTPNotConfigured)
}

func TestDisableRequiresReauth(t *testing.T) {
	f := newTOTPFixture(t)
	user := testUser(t, "Sup3rSecret")
	secret := withTOTPSecret(t, f, user)
	user.TOTPEnabled = true

	f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
		return user, nil
	}

	t.Run("bare session is rejected", func(t *testing.T) {
		f.users.SetTOTPEnabledFunc = func(ctx context.Context, id string, enabled bool) error {
			t.Fatal("must not disable without re-authentication")
			return nil
		}
		err := f.svc.Disable(context.Background(), user.ID, "", "")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("wrong password and wrong code rejected", func(t *testing.T) {
		err := f.svc.Disable(context.Background(), user.ID, "WrongPassw0rd", "000000")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("current password disables", func(t *testing.T) {
		var flipped *bool
		f.users.SetTOTPEnabledFunc = func(ctx context.Context, id string, enabled bool) error {
			flipped = &enabled
			return nil
		}
		require.NoError(t, f.svc.Disable(context.Background(), user.ID, "Sup3rSecret", ""))
		require.NotNil(t, flipped)
		assert.False(t, *flipped)
	})

	t.Run("valid code disables", func(t *testing.T) {
		var flipped *bool
		f.users.SetTOTPEnabledFunc = func(ctx context.Context, id string, enabled bool) error {
			flipped = &enabled
			return nil
		}

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		require.NoError(t, f.svc.Disable(context.Background(), user.ID, "", code))
		require.NotNil(t, flipped)
		assert.False(t, *flipped)
	})
}

func TestDisableWhenNotEnabled(t *testing.T) {
	f := newTOTPFixture(t)
	user := testUser(t, "Sup3rSecret")

	f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
		return user, nil
	}

	err := f.svc.Disable(context.Background(), user.ID, "Sup3rSecret", "")
	assert.ErrorIs(t, err, models.ErrTOTPNotConfigured)
}

func withTOTPSecret(t *testing.T, f *totpFixture, user *models.User) string {
	t.Helper()
	gen, err := f.totp.GenerateSecret(user.Email)
	require.NoError(t, err)
	user.TOTPSecretEnc = gen.Encrypted
	user.TOTPSecretNonce = gen.Nonce
	return gen.Secret
}
