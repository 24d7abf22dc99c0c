package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	mail "github.com/go-mail/mail/v2"

	"github.com/noah-isme/ripe-api/pkg/config"
)

// ErrNotConfigured is returned when sending is attempted without an SMTP host or sender.
var ErrNotConfigured = errors.New("smtp not configured (SMTP_HOST/SMTP_FROM)")

// Message is a single outbound e-mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through an SMTP relay with mandatory STARTTLS.
type SMTPSender struct {
	from   string
	dialer *mail.Dialer
}

// NewSMTPSender builds a sender from configuration.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	d := mail.NewDialer(cfg.Host, port, cfg.User, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify, //nolint:gosec // development relays only
	}
	d.Timeout = 15 * time.Second
	return &SMTPSender{from: cfg.From, dialer: d}, nil
}

// Send dials the relay and sends msg. Empty recipient lists are a no-op.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(buildMessage(s.from, msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func buildMessage(from string, msg Message) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return m
}
