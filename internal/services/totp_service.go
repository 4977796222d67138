package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jthurman/localhive/internal/auth"
	"github.com/jthurman/localhive/internal/models"
	pkgauth "github.com/jthurman/localhive/pkg/auth"
	pkglogger "github.com/jthurman/localhive/pkg/logger"
)

// TOTPService manages the second-factor lifecycle: setup, enable, disable
type TOTPService struct {
	users       UserRepository
	totp        *auth.TOTPManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewTOTPService creates a new TOTPService
func NewTOTPService(users UserRepository, totp *auth.TOTPManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *TOTPService {
	return &TOTPService{
		users:       users,
		totp:        totp,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SetupResponse carries the one-time provisioning material for the
// authenticator app. The secret is never returned again after setup.
type SetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCode          string `json:"qr_code"`
}

// Setup provisions a fresh secret for the user, stored encrypted and
// disabled. Re-running setup replaces any previous secret, so a user who
// lost their device can start over before enabling.
func (s *TOTPService) Setup(ctx context.Context, userID string) (*SetupResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	gen, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		s.logger.Error("failed to generate TOTP secret", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.users.SetTOTPSecret(ctx, user.ID, gen.Encrypted, gen.Nonce); err != nil {
		s.logger.Error("failed to store TOTP secret", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("totp_setup", user.ID, "")

	return &SetupResponse{
		Secret:          gen.Secret,
		ProvisioningURI: gen.OTPAuthURL,
		QRCode:          gen.QRDataURL,
	}, nil
}

// Enable activates the pending secret after the user proves they hold it
// by supplying a currently valid code. The secret is not rotated on enable.
func (s *TOTPService) Enable(ctx context.Context, userID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !user.HasTOTPSecret() {
		return models.ErrTOTPNotConfigured
	}

	secret, err := s.totp.DecryptSecret(user.TOTPSecretEnc, user.TOTPSecretNonce)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	valid, err := s.totp.ValidateCode(secret, code)
	if err != nil || !valid {
		return models.ErrTOTPInvalidCode
	}

	if err := s.users.SetTOTPEnabled(ctx, user.ID, true); err != nil {
		s.logger.Error("failed to enable TOTP", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("totp_enabled", user.ID, "")
	return nil
}

// Disable turns the second factor off. The caller must re-authenticate with
// either their current password or a currently valid code; a bare session is
// not enough to weaken the account.
func (s *TOTPService) Disable(ctx context.Context, userID, password, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !user.TOTPEnabled {
		return models.ErrTOTPNotConfigured
	}

	authorized := false

	if password != "" {
		if err := pkgauth.ComparePassword(user.PasswordHash, password); err == nil {
			authorized = true
		}
	}

	if !authorized && code != "" && user.HasTOTPSecret() {
		secret, err := s.totp.DecryptSecret(user.TOTPSecretEnc, user.TOTPSecretNonce)
		if err != nil {
			s.logger.Error("failed to decrypt TOTP secret", slog.String("user_id", user.ID), slog.Any("error", err))
			return models.ErrInternalServer
		}
		if valid, err := s.totp.ValidateCode(secret, code); err == nil && valid {
			authorized = true
		}
	}

	if !authorized {
		s.auditLogger.LogAccountAction("totp_disable_rejected", user.ID, "")
		return models.ErrUnauthorized
	}

	if err := s.users.SetTOTPEnabled(ctx, user.ID, false); err != nil {
		s.logger.Error("failed to disable TOTP", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("totp_disabled", user.ID, "")
	return nil
}
