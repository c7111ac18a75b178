package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/flosch/pongo2/v6"
)

// NotificationKind identifies a templated email.
type NotificationKind string

const (
	NotificationEmailVerification NotificationKind = "email_verification"
	NotificationPasswordReset     NotificationKind = "password_reset"
)

// MailTemplate is a pair of pongo2 sources for subject and body.
type MailTemplate struct {
	Subject string
	Body    string
}

var defaultMailTemplates = map[NotificationKind]MailTemplate{
	NotificationEmailVerification: {
		Subject: "{{ app_name }}: verify your email",
		Body: `Hi {{ name|default:username }},

Your verification code is {{ code }}.
It expires in {{ ttl_minutes }} minutes.

If you did not create an account you can ignore this email.
`,
	},
	NotificationPasswordReset: {
		Subject: "{{ app_name }}: password reset code",
		Body: `Hi {{ name|default:username }},

Use {{ code }} to reset your password.
The code expires in {{ ttl_minutes }} minutes.

If you did not request a reset you can ignore this email.
`,
	},
}

type compiledTemplate struct {
	subject *pongo2.Template
	body    *pongo2.Template
}

// Mailer renders account emails and hands them to a Notifier.
type Mailer struct {
	notifier  Notifier
	appName   string
	now       func() time.Time
	templates map[NotificationKind]compiledTemplate
}

// MailerOption customizes a Mailer.
type MailerOption func(*mailerConfig)

type mailerConfig struct {
	appName   string
	now       func() time.Time
	templates map[NotificationKind]MailTemplate
}

// WithMailerAppName sets the product name used in subjects.
func WithMailerAppName(name string) MailerOption {
	return func(c *mailerConfig) {
		if name != "" {
			c.appName = name
		}
	}
}

// WithMailerClock overrides the clock used to compute remaining minutes.
func WithMailerClock(now func() time.Time) MailerOption {
	return func(c *mailerConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMailTemplate replaces the template used for kind.
func WithMailTemplate(kind NotificationKind, tpl MailTemplate) MailerOption {
	return func(c *mailerConfig) {
		c.templates[kind] = tpl
	}
}

// NewMailer compiles the templates up front so a bad template fails at startup.
func NewMailer(notifier Notifier, opts ...MailerOption) (*Mailer, error) {
	cfg := &mailerConfig{
		appName:   "Accounts",
		now:       time.Now,
		templates: map[NotificationKind]MailTemplate{},
	}
	for kind, tpl := range defaultMailTemplates {
		cfg.templates[kind] = tpl
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	m := &Mailer{
		notifier:  notifier,
		appName:   cfg.appName,
		now:       cfg.now,
		templates: make(map[NotificationKind]compiledTemplate, len(cfg.templates)),
	}

	for kind, tpl := range cfg.templates {
		subject, err := pongo2.FromString(tpl.Subject)
		if err != nil {
			return nil, fmt.Errorf("compile %s subject: %w", kind, err)
		}
		body, err := pongo2.FromString(tpl.Body)
		if err != nil {
			return nil, fmt.Errorf("compile %s body: %w", kind, err)
		}
		m.templates[kind] = compiledTemplate{subject: subject, body: body}
	}

	return m, nil
}

// SendVerificationCode emails the email verification code.
func (m *Mailer) SendVerificationCode(ctx context.Context, account *Account, code OneTimeCode) error {
	return m.send(ctx, NotificationEmailVerification, account, code)
}

// SendPasswordResetCode emails the password reset code.
func (m *Mailer) SendPasswordResetCode(ctx context.Context, account *Account, code OneTimeCode) error {
	return m.send(ctx, NotificationPasswordReset, account, code)
}

func (m *Mailer) send(ctx context.Context, kind NotificationKind, account *Account, code OneTimeCode) error {
	tpl, ok := m.templates[kind]
	if !ok {
		return withCause(ErrNotificationFailed, fmt.Errorf("no template for %s", kind), map[string]any{"kind": string(kind)})
	}

	minutes := int(code.ExpiresAt.Sub(m.now()).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	data := pongo2.Context{
		"app_name":    m.appName,
		"username":    account.Username,
		"name":        account.Name,
		"code":        code.Code,
		"ttl_minutes": minutes,
	}

	subject, err := tpl.subject.Execute(data)
	if err != nil {
		return withCause(ErrNotificationFailed, err, map[string]any{"kind": string(kind)})
	}

	body, err := tpl.body.Execute(data)
	if err != nil {
		return withCause(ErrNotificationFailed, err, map[string]any{"kind": string(kind)})
	}

	if m.notifier == nil {
		return withCause(ErrNotificationFailed, fmt.Errorf("no notifier configured"), map[string]any{"kind": string(kind)})
	}

	if err := m.notifier.Send(ctx, account.Email, subject, body); err != nil {
		return withCause(ErrNotificationFailed, err, map[string]any{"kind": string(kind)})
	}

	return nil
}
