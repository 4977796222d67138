package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// LockoutNotifier defines the interface for account-security notifications
type LockoutNotifier interface {
	SendLockoutNotice(ctx context.Context, email string, until time.Time) error
}

// AWSSESNotifier sends security notifications using AWS SES
type AWSSESNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESNotifier creates a new AWS SES notifier
func NewAWSSESNotifier(region, fromAddress string, logger *slog.Logger) (*AWSSESNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendLockoutNotice tells the account owner their account was temporarily
// locked after repeated failed sign-in attempts
func (s *AWSSESNotifier) SendLockoutNotice(ctx context.Context, email string, until time.Time) error {
	unlockAt := until.UTC().Format(time.RFC1123)

	textBody := fmt.Sprintf(`Your account was temporarily locked

We detected repeated failed sign-in attempts on your account and have
temporarily locked it to protect you.

The lock lifts automatically at %s.

If this was you, you can sign in again after that time. If you don't
recognize this activity, we recommend changing your password once the
lock expires.

This is an automated message. Please do not reply to this email.
`, unlockAt)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>Your account was temporarily locked</h1>
        <p>We detected repeated failed sign-in attempts on your account and have
        temporarily locked it to protect you.</p>
        <p>The lock lifts automatically at <strong>%s</strong>.</p>
        <p>If this was you, you can sign in again after that time. If you don't
        recognize this activity, we recommend changing your password once the
        lock expires.</p>
        <p style="color: #666; font-size: 12px; margin-top: 20px;">
        This is an automated message. Please do not reply to this email.</p>
    </div>
</body>
</html>
`, unlockAt)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Security alert: your account was temporarily locked"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	if _, err := s.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send lockout notice: %w", err)
	}

	s.logger.Info("lockout notice sent")
	return nil
}

// NoopNotifier discards notifications; used when email delivery is disabled
type NoopNotifier struct {
	logger *slog.Logger
}

// NewNoopNotifier creates a notifier that logs instead of sending
func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

func (s *NoopNotifier) SendLockoutNotice(ctx context.Context, email string, until time.Time) error {
	s.logger.Info("lockout notice suppressed (email delivery disabled)",
		slog.Time("locked_until", until))
	return nil
}
