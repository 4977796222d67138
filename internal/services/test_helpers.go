package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jthurman/localhive/internal/models"
	pkglogger "github.com/jthurman/localhive/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func discardAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger())
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc         func(ctx context.Context, email string) (*models.User, error)
	CreateFunc             func(ctx context.Context, user *models.User) (*models.User, error)
	RecordLoginSuccessFunc func(ctx context.Context, id string, at time.Time) error
	SetLockoutFunc         func(ctx context.Context, id string, until time.Time) error
	UpdatePasswordFunc     func(ctx context.Context, id string, passwordHash string) error
	SetTOTPSecretFunc      func(ctx context.Context, id string, encrypted, nonce []byte) error
	SetTOTPEnabledFunc     func(ctx context.Context, id string, enabled bool) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	if m.RecordLoginSuccessFunc != nil {
		return m.RecordLoginSuccessFunc(ctx, id, at)
	}
	return nil
}

func (m *MockUserRepository) SetLockout(ctx context.Context, id string, until time.Time) error {
	if m.SetLockoutFunc != nil {
		return m.SetLockoutFunc(ctx, id, until)
	}
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) SetTOTPSecret(ctx context.Context, id string, encrypted, nonce []byte) error {
	if m.SetTOTPSecretFunc != nil {
		return m.SetTOTPSecretFunc(ctx, id, encrypted, nonce)
	}
	return nil
}

func (m *MockUserRepository) SetTOTPEnabled(ctx context.Context, id string, enabled bool) error {
	if m.SetTOTPEnabledFunc != nil {
		return m.SetTOTPEnabledFunc(ctx, id, enabled)
	}
	return nil
}

// MockChallengeRepository implements ChallengeRepository for testing
type MockChallengeRepository struct {
	CreateFunc        func(ctx context.Context, userID string, ttl time.Duration) (*models.LoginChallenge, error)
	GetByIDFunc       func(ctx context.Context, id string) (*models.LoginChallenge, error)
	ConsumeFunc       func(ctx context.Context, id string, at time.Time) error
	DeleteForUserFunc func(ctx context.Context, userID string) error
	DeleteExpiredFunc func(ctx context.Context, now time.Time) (int64, error)
}

func (m *MockChallengeRepository) Create(ctx context.Context, userID string, ttl time.Duration) (*models.LoginChallenge, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, ttl)
	}
	now := time.Now()
	return &models.LoginChallenge{
		ID:        "challenge_123",
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (m *MockChallengeRepository) GetByID(ctx context.Context, id string) (*models.LoginChallenge, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockChallengeRepository) Consume(ctx context.Context, id string, at time.Time) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, id, at)
	}
	return nil
}

func (m *MockChallengeRepository) DeleteForUser(ctx context.Context, userID string) error {
	if m.DeleteForUserFunc != nil {
		return m.DeleteForUserFunc(ctx, userID)
	}
	return nil
}

func (m *MockChallengeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now)
	}
	return 0, nil
}

// MockLoginGuard implements LoginGuard for testing
type MockLoginGuard struct {
	CheckIPFunc       func(ip string) error
	CheckEmailFunc    func(ctx context.Context, email string) error
	RecordFailureFunc func(ctx context.Context, attempt *models.LoginAttempt) (*time.Time, error)
	RecordSuccessFunc func(ctx context.Context, attempt *models.LoginAttempt) error
}

func (m *MockLoginGuard) CheckIP(ip string) error {
	if m.CheckIPFunc != nil {
		return m.CheckIPFunc(ip)
	}
	return nil
}

func (m *MockLoginGuard) CheckEmail(ctx context.Context, email string) error {
	if m.CheckEmailFunc != nil {
		return m.CheckEmailFunc(ctx, email)
	}
	return nil
}

func (m *MockLoginGuard) RecordFailure(ctx context.Context, attempt *models.LoginAttempt) (*time.Time, error) {
	if m.RecordFailureFunc != nil {
		return m.RecordFailureFunc(ctx, attempt)
	}
	return nil, nil
}

func (m *MockLoginGuard) RecordSuccess(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordSuccessFunc != nil {
		return m.RecordSuccessFunc(ctx, attempt)
	}
	return nil
}

// MockSessionIssuer implements SessionIssuer for testing
type MockSessionIssuer struct {
	IssueFunc func(userID, email string) (string, error)
}

func (m *MockSessionIssuer) Issue(userID, email string) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(userID, email)
	}
	return "session-token", nil
}

// MockLockoutNotifier implements LockoutNotifier for testing
type MockLockoutNotifier struct {
	SendLockoutNoticeFunc func(ctx context.Context, email string, until time.Time) error
	Sent                  []string
}

func (m *MockLockoutNotifier) SendLockoutNotice(ctx context.Context, email string, until time.Time) error {
	m.Sent = append(m.Sent, email)
	if m.SendLockoutNoticeFunc != nil {
		return m.SendLockoutNoticeFunc(ctx, email, until)
	}
	return nil
}

// MockAttemptLedger implements AttemptLedger for testing
type MockAttemptLedger struct {
	RecordFunc              func(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailuresFunc func(ctx context.Context, email string, since time.Time) (int, error)
	Recorded                []*models.LoginAttempt
}

func (m *MockAttemptLedger) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordFunc != nil {
		if err := m.RecordFunc(ctx, attempt); err != nil {
			return err
		}
	}
	m.Recorded = append(m.Recorded, attempt)
	return nil
}

func (m *MockAttemptLedger) CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	if m.CountRecentFailuresFunc != nil {
		return m.CountRecentFailuresFunc(ctx, email, since)
	}
	return 0, nil
}
