package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jthurman/localhive/internal/auth"
	"github.com/jthurman/localhive/internal/models"
	pkgauth "github.com/jthurman/localhive/pkg/auth"
	pkglogger "github.com/jthurman/localhive/pkg/logger"
)

// UserRepository defines the credential-store operations auth needs
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
	SetLockout(ctx context.Context, id string, until time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	SetTOTPSecret(ctx context.Context, id string, encrypted, nonce []byte) error
	SetTOTPEnabled(ctx context.Context, id string, enabled bool) error
}

// ChallengeRepository defines the second-factor challenge registry operations
type ChallengeRepository interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (*models.LoginChallenge, error)
	GetByID(ctx context.Context, id string) (*models.LoginChallenge, error)
	Consume(ctx context.Context, id string, at time.Time) error
	DeleteForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoginGuard defines the brute-force guards consulted around verification
type LoginGuard interface {
	CheckIP(ip string) error
	CheckEmail(ctx context.Context, email string) error
	RecordFailure(ctx context.Context, attempt *models.LoginAttempt) (*time.Time, error)
	RecordSuccess(ctx context.Context, attempt *models.LoginAttempt) error
}

// SessionIssuer mints signed session tokens
type SessionIssuer interface {
	Issue(userID, email string) (string, error)
}

// AuthService handles authentication business logic
type AuthService struct {
	users        UserRepository
	challenges   ChallengeRepository
	guard        LoginGuard
	sessions     SessionIssuer
	totp         *auth.TOTPManager
	notifier     LockoutNotifier
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	challengeTTL time.Duration
	now          func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserRepository,
	challenges ChallengeRepository,
	guard LoginGuard,
	sessions SessionIssuer,
	totp *auth.TOTPManager,
	notifier LockoutNotifier,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	challengeTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:        users,
		challenges:   challenges,
		guard:        guard,
		sessions:     sessions,
		totp:         totp,
		notifier:     notifier,
		logger:       logger,
		auditLogger:  auditLogger,
		challengeTTL: challengeTTL,
		now:          time.Now,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	TOTPEnabled bool    `json:"totp_enabled"`
	LastLoginAt *string `json:"last_login_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// LoginResult represents the outcome of a successful first factor:
// either a session or a pending second-factor challenge, never both
type LoginResult struct {
	RequiresSecondFactor bool
	ChallengeID          string
	ChallengeExpiresAt   time.Time
	Token                string
	User                 *UserResponse
}

// dummyHash is a bcrypt hash compared against when the email is unknown, so
// unknown-email and wrong-password take a similar amount of time
var dummyHash = func() string {
	h, err := pkgauth.HashPassword("login-timing-padding")
	if err != nil {
		panic(err)
	}
	return h
}()

// Login verifies credentials behind the guards and either issues a session
// or opens a second-factor challenge.
//
// The guards run in fixed order before the password hash is touched:
// IP window, account lockout, then the durable email failure count.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.guard.CheckIP(ipAddress); err != nil {
		return nil, err
	}

	if email == "" || password == "" {
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := s.now()
	if user != nil && user.IsLocked(now) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_rejected",
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: "account_locked",
		})
		return nil, models.RetryableAfter(models.ErrAccountLocked, user.LockedUntil.Sub(now))
	}

	if err := s.guard.CheckEmail(ctx, email); err != nil {
		return nil, err
	}

	// Unknown email burns a bcrypt compare anyway so the two failure modes
	// are indistinguishable by response time
	if user == nil {
		_ = pkgauth.ComparePassword(dummyHash, password)
		return s.failLogin(ctx, email, ipAddress, userAgent, nil)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return s.failLogin(ctx, email, ipAddress, userAgent, user)
	}

	if err := s.succeedLogin(ctx, email, ipAddress, userAgent, user); err != nil {
		return nil, err
	}

	if user.TOTPEnabled && user.HasTOTPSecret() {
		// Discard any challenges left over from abandoned logins
		if err := s.challenges.DeleteForUser(ctx, user.ID); err != nil {
			s.logger.Warn("failed to purge stale challenges", slog.String("user_id", user.ID), slog.Any("error", err))
		}

		challenge, err := s.challenges.Create(ctx, user.ID, s.challengeTTL)
		if err != nil {
			s.logger.Error("failed to create login challenge", slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		return &LoginResult{
			RequiresSecondFactor: true,
			ChallengeID:          challenge.ID,
			ChallengeExpiresAt:   challenge.ExpiresAt,
		}, nil
	}

	token, err := s.sessions.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue session", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &LoginResult{
		Token: token,
		User:  userModelToResponse(user),
	}, nil
}

// VerifySecondFactor completes a pending login challenge with a TOTP code
// and issues the session withheld at the first factor
func (s *AuthService) VerifySecondFactor(ctx context.Context, challengeID, code, ipAddress, userAgent string) (*LoginResult, error) {
	if err := s.guard.CheckIP(ipAddress); err != nil {
		return nil, err
	}

	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrChallengeNotFound
		}
		s.logger.Error("failed to get login challenge", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if challenge.IsConsumed() {
		return nil, models.ErrChallengeUsed
	}

	now := s.now()
	if challenge.IsExpired(now) {
		return nil, models.ErrChallengeExpired
	}

	user, err := s.users.GetByID(ctx, challenge.UserID)
	if err != nil {
		s.logger.Error("failed to get user for challenge", slog.String("user_id", challenge.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.IsLocked(now) {
		return nil, models.RetryableAfter(models.ErrAccountLocked, user.LockedUntil.Sub(now))
	}

	if err := s.guard.CheckEmail(ctx, user.Email); err != nil {
		return nil, err
	}

	if !user.HasTOTPSecret() || !user.TOTPEnabled {
		return nil, models.ErrTOTPNotConfigured
	}

	secret, err := s.totp.DecryptSecret(user.TOTPSecretEnc, user.TOTPSecretNonce)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	valid, err := s.totp.ValidateCode(secret, code)
	if err != nil || !valid {
		// A wrong code feeds the guards like a first-factor failure, but the
		// challenge stays open for another try until it expires
		if _, ferr := s.failLogin(ctx, user.Email, ipAddress, userAgent, user); ferr != nil {
			var retryable *models.RetryAfterError
			if errors.Is(ferr, models.ErrInternalServer) || errors.As(ferr, &retryable) {
				return nil, ferr
			}
		}
		return nil, models.ErrTOTPInvalidCode
	}

	// Atomic consumption: of two concurrent verifications, exactly one wins
	if err := s.challenges.Consume(ctx, challenge.ID, now); err != nil {
		if errors.Is(err, models.ErrChallengeUsed) {
			return nil, models.ErrChallengeUsed
		}
		s.logger.Error("failed to consume challenge", slog.String("challenge_id", challenge.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.succeedLogin(ctx, user.Email, ipAddress, userAgent, user); err != nil {
		return nil, err
	}

	token, err := s.sessions.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue session", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &LoginResult{
		Token: token,
		User:  userModelToResponse(user),
	}, nil
}

// failLogin records a failed attempt and maps it to the caller-facing error.
// When the failure trips the lockout threshold, the lockout is persisted, a
// best-effort notice is sent, and the lock is reported instead of the generic
// credential error. A ledger write failure fails the whole request closed.
func (s *AuthService) failLogin(ctx context.Context, email, ipAddress, userAgent string, user *models.User) (*LoginResult, error) {
	attempt := &models.LoginAttempt{
		Email:     email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if user != nil {
		attempt.UserID = &user.ID
	}

	lockUntil, err := s.guard.RecordFailure(ctx, attempt)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	event := pkglogger.AuditEvent{
		EventType:     "login_failed",
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		FailureReason: "invalid_credentials",
	}
	if user != nil {
		event.UserID = user.ID
	}
	s.auditLogger.LogAuthAttempt(event)

	if lockUntil != nil && user != nil {
		if err := s.users.SetLockout(ctx, user.ID, *lockUntil); err != nil {
			s.logger.Error("failed to set account lockout", slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.auditLogger.LogAccountAction("account_locked", user.ID, ipAddress)

		if err := s.notifier.SendLockoutNotice(ctx, user.Email, *lockUntil); err != nil {
			s.logger.Warn("failed to send lockout notice", slog.String("user_id", user.ID), slog.Any("error", err))
		}

		return nil, models.RetryableAfter(models.ErrAccountLocked, lockUntil.Sub(s.now()))
	}

	return nil, models.ErrInvalidCredentials
}

// succeedLogin records the successful outcome and clears any lockout.
// A successful verification is the single event that forgives prior failures.
func (s *AuthService) succeedLogin(ctx context.Context, email, ipAddress, userAgent string, user *models.User) error {
	attempt := &models.LoginAttempt{
		Email:     email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		UserID:    &user.ID,
	}

	if err := s.guard.RecordSuccess(ctx, attempt); err != nil {
		return models.ErrInternalServer
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, s.now()); err != nil {
		s.logger.Error("failed to record login success", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   true,
	})

	return nil
}

// Register creates a new account with a validated, hashed password
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*UserResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.users.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return userModelToResponse(user), nil
}

// ChangePassword verifies the current password, stores a new hash, and
// returns a fresh session token so the client replaces its credential
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrUnauthorized
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "password_change_failed",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
		})
		return "", models.ErrUnauthorized
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return "", err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_changed", user.ID, "")

	token, err := s.sessions.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue session", slog.String("user_id", user.ID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	return token, nil
}

// CurrentUser resolves the authenticated user's profile
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return userModelToResponse(user), nil
}

func userModelToResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		TOTPEnabled: user.TOTPEnabled,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &lastLogin
	}
	return resp
}
