package mail

import (
	"context"
	"fmt"
	"time"

	"student-portal/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

// Dialer sends fully built messages
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers verification codes over SMTP
type SMTPMailer struct {
	dialer Dialer
	from   string
	log    *logger.Logger
}

// NewSMTPMailer creates a mailer dialing the configured SMTP server
func NewSMTPMailer(cfg Config, log *logger.Logger) *SMTPMailer {
	return NewSMTPMailerWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, log)
}

// NewSMTPMailerWithDialer creates a mailer around a custom dialer
func NewSMTPMailerWithDialer(d Dialer, from string, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{dialer: d, from: from, log: log}
}

// SendOTP emails a verification code to the address
func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your student portal verification code")
	msg.SetBody("text/plain", otpText(code, ttl))
	msg.AddAlternative("text/html", otpHTML(code, ttl))

	// gomail has no context support; run the dial so a cancelled request
	// returns promptly even if the SMTP server is slow
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			m.log.Error("smtp delivery failed", "to", to, "error", err)
			return fmt.Errorf("smtp send: %w", err)
		}
	}
	return nil
}

func otpText(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your verification code is %s.\n\nIt expires in %s. If you did not request it, ignore this email.\n",
		code, humanize(ttl))
}

func otpHTML(code string, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Your verification code is</p><p style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</p><p>It expires in %s. If you did not request it, ignore this email.</p>`,
		code, humanize(ttl))
}

func humanize(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
