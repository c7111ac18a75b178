// Package notify delivers rendered account notifications.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"

	accounts "github.com/goliatone/go-accounts"
)

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS requires STARTTLS. Otherwise it is used when offered.
	TLS bool
}

// SMTP sends plain text mail through a relay.
type SMTP struct {
	client *mail.Client
	from   string
}

var _ accounts.Notifier = (*SMTP)(nil)

// NewSMTP builds the relay client. No connection is made until Send.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("notify: smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("notify: smtp from address is required")
	}

	policy := mail.TLSOpportunistic
	if cfg.TLS {
		policy = mail.TLSMandatory
	}

	opts := []mail.Option{
		mail.WithTLSPortPolicy(policy),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: create smtp client: %w", err)
	}

	return &SMTP{client: client, from: cfg.From}, nil
}

// Send implements accounts.Notifier.
func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	msg, err := s.message(to, subject, body)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: send to %s: %w", to, err)
	}
	return nil
}

func (s *SMTP) message(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("notify: invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("notify: invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
