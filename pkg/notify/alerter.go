package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"
)

// ErrNoChannel is returned when neither email nor WhatsApp delivery is configured.
var ErrNoChannel = errors.New("no alert channel configured")

// TextSender delivers a WhatsApp text message.
type TextSender interface {
	SendText(ctx context.Context, phone, message string) (map[string]any, error)
}

// Alert describes one connectivity transition.
type Alert struct {
	Key       string
	Connected bool
	Session   bool
	Detail    string
	At        time.Time
}

// Subject returns the email subject for the alert.
func (a Alert) Subject() string {
	if a.Connected {
		return fmt.Sprintf("[OK] %s reconectado", a.provider())
	}

	return fmt.Sprintf("[ALERTA] %s desconectado", a.provider())
}

// Text renders the plain text body.
func (a Alert) Text(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder

	b.WriteString(a.Subject())
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Status: %s\n", a.status())
	fmt.Fprintf(&b, "Sessão: %t\n", a.Session)
	fmt.Fprintf(&b, "Data/Hora: %s\n", a.At.In(loc).Format("02/01/2006, 15:04:05"))

	if a.Detail != "" {
		fmt.Fprintf(&b, "Detalhes: %s\n", a.Detail)
	}

	if !a.Connected {
		b.WriteString("\nAs mensagens de formulário não serão entregues até a instância ser reconectada.\n")
	}

	return b.String()
}

// HTML renders the HTML body.
func (a Alert) HTML(loc *time.Location) string {
	lines := strings.Split(strings.TrimSpace(a.Text(loc)), "\n")

	var b strings.Builder

	b.WriteString("<div>")

	for _, line := range lines {
		if line == "" {
			b.WriteString("<br>")

			continue
		}

		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}

	b.WriteString("</div>")

	return b.String()
}

func (a Alert) provider() string {
	if a.Key == "" || a.Key == "zapi" {
		return "WhatsApp (Z-API)"
	}

	return a.Key
}

func (a Alert) status() string {
	if a.Connected {
		return "conectado"
	}

	return "desconectado"
}

// Alerter sends alerts by email first and falls back to WhatsApp.
type Alerter struct {
	email    EmailSender
	emailTo  string
	whatsapp TextSender
	phone    string
	location *time.Location
	logger   *slog.Logger
}

// AlerterConfig wires the alert channels. Nil senders or empty destinations disable a channel.
type AlerterConfig struct {
	Email    EmailSender
	EmailTo  string
	WhatsApp TextSender
	Phone    string
	Location *time.Location
}

func NewAlerter(cfg AlerterConfig, logger *slog.Logger) *Alerter {
	return &Alerter{
		email:    cfg.Email,
		emailTo:  cfg.EmailTo,
		whatsapp: cfg.WhatsApp,
		phone:    cfg.Phone,
		location: cfg.Location,
		logger:   logger.With("module", "alerter"),
	}
}

func (a *Alerter) emailEnabled() bool {
	return a.email != nil && a.emailTo != ""
}

func (a *Alerter) whatsappEnabled() bool {
	return a.whatsapp != nil && a.phone != ""
}

// Notify delivers the alert. The WhatsApp backup is used only when email is unavailable or fails.
func (a *Alerter) Notify(ctx context.Context, alert Alert) error {
	if alert.At.IsZero() {
		alert.At = time.Now()
	}

	var emailErr error

	if a.emailEnabled() {
		emailErr = a.email.Send(ctx, EmailMessage{
			To:      a.emailTo,
			Subject: alert.Subject(),
			Text:    alert.Text(a.location),
			HTML:    alert.HTML(a.location),
		})
		if emailErr == nil {
			a.logger.InfoContext(ctx, "Alert sent by email", "to", a.emailTo, "connected", alert.Connected)

			return nil
		}

		a.logger.WarnContext(ctx, "Alert email failed, trying WhatsApp backup", "error", emailErr)
	}

	if !a.whatsappEnabled() {
		if emailErr != nil {
			return emailErr
		}

		return ErrNoChannel
	}

	if _, err := a.whatsapp.SendText(ctx, a.phone, alert.Text(a.location)); err != nil {
		return errors.Join(emailErr, fmt.Errorf("whatsapp backup failed: %w", err))
	}

	a.logger.InfoContext(ctx, "Alert sent by WhatsApp", "phone", a.phone, "connected", alert.Connected)

	return nil
}
