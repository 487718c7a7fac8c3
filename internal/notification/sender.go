// Package notification renders and delivers transactional emails.
package notification

import (
	"context"
	"fmt"

	"farmart/internal/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message is a rendered HTML email
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a single message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGrid delivers through the SendGrid v3 API
type SendGrid struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGrid(cfg config.EmailConfig) *SendGrid {
	return &SendGrid{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	email := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Text, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("failed to send email: sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogSender only logs messages; used when no provider is configured
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("Email delivery disabled, skipping",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// NewSender picks SendGrid when an API key is configured
func NewSender(cfg config.EmailConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled() {
		return NewLogSender(logger)
	}
	return NewSendGrid(cfg)
}
