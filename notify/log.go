package notify

import (
	"context"

	accounts "github.com/goliatone/go-accounts"
)

// Log writes notifications to the logger instead of delivering them. It is
// used when no relay is configured.
type Log struct {
	logger accounts.Logger
}

var _ accounts.Notifier = (*Log)(nil)

func NewLog(logger accounts.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(_ context.Context, to, subject, body string) error {
	if l.logger != nil {
		l.logger.Info("notification not delivered, smtp disabled", "to", to, "subject", subject, "body", body)
	}
	return nil
}
