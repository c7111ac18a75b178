package accounts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Logger is the logging contract used across the package. Arguments are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes embedded in issued tokens
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() Role
}

// Config holds token and one time code options
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetOTPTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Notifier delivers a rendered message to a single recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, to, subject, body string) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// AvatarUpload is the raw image handed over by the transport layer.
type AvatarUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Filename    string
}

// AvatarStore persists profile pictures and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, upload AvatarUpload, identifier string) (string, error)
}

// AvatarStoreFunc adapts a function to the AvatarStore interface.
type AvatarStoreFunc func(ctx context.Context, upload AvatarUpload, identifier string) (string, error)

// Upload implements AvatarStore.
func (f AvatarStoreFunc) Upload(ctx context.Context, upload AvatarUpload, identifier string) (string, error) {
	return f(ctx, upload, identifier)
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println("[DBG] ACCOUNTS " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println("[INF] ACCOUNTS " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println("[WRN] ACCOUNTS " + format(msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println("[ERR] ACCOUNTS " + format(msg, args...))
}

func format(msg string, args ...any) string {
	if len(args) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	return b.String()
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
