package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/jthurman/localhive/internal/models"
	"github.com/jthurman/localhive/internal/ratelimit"
)

// AttemptLedger defines the durable login-attempt operations the guards need
type AttemptLedger interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error)
}

// RateLimitConfig holds the guard thresholds and windows
type RateLimitConfig struct {
	EmailMaxFailures int
	EmailWindow      time.Duration
	LockoutThreshold int
	LockoutDuration  time.Duration
}

// RateLimitService implements the brute-force guards around credential
// verification: the in-memory per-IP window and the durable per-email
// failure count, plus the bookkeeping that feeds them.
type RateLimitService struct {
	tracker ratelimit.Tracker
	ledger  AttemptLedger
	cfg     RateLimitConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(tracker ratelimit.Tracker, ledger AttemptLedger, cfg RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		tracker: tracker,
		ledger:  ledger,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckIP rejects callers whose IP has exceeded its failure window
func (s *RateLimitService) CheckIP(ip string) error {
	blocked, retryAfter := s.tracker.Check(ip)
	if blocked {
		s.logger.Warn("login rejected by ip guard", slog.String("ip", ip))
		return models.RetryableAfter(models.ErrIPRateLimited, retryAfter)
	}
	return nil
}

// CheckEmail rejects attempts for an email with too many recent failures.
// A ledger read failure fails closed: the attempt is rejected rather than
// allowed through unguarded.
func (s *RateLimitService) CheckEmail(ctx context.Context, email string) error {
	since := s.now().Add(-s.cfg.EmailWindow)

	count, err := s.ledger.CountRecentFailures(ctx, email, since)
	if err != nil {
		s.logger.Error("email guard ledger read failed", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if count >= s.cfg.EmailMaxFailures {
		s.logger.Warn("login rejected by email guard", slog.Int("recent_failures", count))
		return models.ErrEmailRateLimited
	}

	return nil
}

// RecordFailure appends a failed attempt to the durable ledger, feeds the IP
// tracker, and re-counts the email's windowed failures. When the count reaches
// the lockout threshold it returns the lockout expiry the caller must persist.
// A ledger write failure is returned to the caller so the request fails closed.
func (s *RateLimitService) RecordFailure(ctx context.Context, attempt *models.LoginAttempt) (*time.Time, error) {
	attempt.Success = false
	attempt.AttemptTime = s.now()

	if err := s.ledger.Record(ctx, attempt); err != nil {
		s.logger.Error("failed to record login failure", slog.Any("error", err))
		return nil, err
	}

	s.tracker.RecordFailure(attempt.IPAddress)

	since := s.now().Add(-s.cfg.EmailWindow)
	count, err := s.ledger.CountRecentFailures(ctx, attempt.Email, since)
	if err != nil {
		s.logger.Error("failed to count login failures", slog.Any("error", err))
		return nil, err
	}

	if count >= s.cfg.LockoutThreshold {
		until := s.now().Add(s.cfg.LockoutDuration)
		return &until, nil
	}

	return nil, nil
}

// RecordSuccess appends a successful attempt to the durable ledger and resets
// the caller's IP bucket. The ledger write still fails closed.
func (s *RateLimitService) RecordSuccess(ctx context.Context, attempt *models.LoginAttempt) error {
	attempt.Success = true
	attempt.AttemptTime = s.now()

	if err := s.ledger.Record(ctx, attempt); err != nil {
		s.logger.Error("failed to record login success", slog.Any("error", err))
		return err
	}

	s.tracker.Reset(attempt.IPAddress)
	return nil
}

// Sweep drops fully elapsed IP windows; driven by the background loop
func (s *RateLimitService) Sweep() {
	s.tracker.Sweep()
}
