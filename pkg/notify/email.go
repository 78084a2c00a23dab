// Package notify delivers provider connectivity alerts by email with a WhatsApp fallback.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"
)

const (
	defaultSendGridHost = "https://api.sendgrid.com"
	sendGridEndpoint    = "/v3/mail/send"
)

// EmailSender defines the interface for sending emails.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	Host      string
}

// SendGridSender sends emails via the SendGrid v3 API.
type SendGridSender struct {
	apiKey    string
	host      string
	fromEmail string
	fromName  string
	logger    *slog.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *slog.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}

	if cfg.Host == "" {
		cfg.Host = defaultSendGridHost
	}

	if cfg.FromName == "" {
		cfg.FromName = "Elementor WhatsApp Monitor"
	}

	return &SendGridSender{
		apiKey:    cfg.APIKey,
		host:      cfg.Host,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger.With("module", "sendgrid"),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)

	html := msg.HTML
	if html == "" {
		html = msg.Text
	}

	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, html)

	request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		s.logger.ErrorContext(ctx, "SendGrid send failed", "error", err, "to", msg.To)

		return fmt.Errorf("sendgrid send failed: %w", err)
	}

	if response.StatusCode >= 400 {
		s.logger.ErrorContext(ctx, "SendGrid returned error status", "status", response.StatusCode, "body", response.Body)

		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	s.logger.InfoContext(ctx, "Email sent via SendGrid", "to", msg.To, "subject", msg.Subject)

	return nil
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// ErrSMTPNotConfigured is returned by NewSMTPSender without a host.
var ErrSMTPNotConfigured = errors.New("smtp host is not configured")

// SMTPSender sends emails through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, ErrSMTPNotConfigured
	}

	if cfg.Port == 0 {
		cfg.Port = 587
	}

	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger.With("module", "smtp"),
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if err := s.dialer.DialAndSend(s.message(msg)); err != nil {
		s.logger.ErrorContext(ctx, "SMTP send failed", "error", err, "to", msg.To)

		return fmt.Errorf("smtp send failed: %w", err)
	}

	s.logger.InfoContext(ctx, "Email sent via SMTP", "to", msg.To, "subject", msg.Subject)

	return nil
}

func (s *SMTPSender) message(msg EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)

	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	return m
}
