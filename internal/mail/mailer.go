// Package mail delivers one-time passcodes to registered addresses.
package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
)

// Sender is the notification side-channel for OTP delivery. A failed send
// never rolls back the stored OTP record; the caller may request a fresh
// code and retry.
type Sender interface {
	SendOTP(ctx context.Context, to, code string) error
}

// SMTPConfig holds the mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends OTP mails over authenticated SMTP.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer creates a mailer from the given transport settings.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// SendOTP mails the code to the recipient.
func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject("Your OTP Code")
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf("Your OTP is %s", code))

	return m.client.DialAndSendWithContext(ctx, msg)
}

// LogMailer logs codes instead of sending them. Development only.
type LogMailer struct {
	Logger zerolog.Logger
}

// SendOTP logs the code.
func (m *LogMailer) SendOTP(_ context.Context, to, code string) error {
	m.Logger.Info().Str("to", to).Str("otp", code).Msg("OTP issued (mail transport not configured)")
	return nil
}
