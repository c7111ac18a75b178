package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Auth.GetAccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.GetRefreshTokenTTL())
	assert.Equal(t, 10*time.Minute, cfg.Auth.GetOTPTTL())
	assert.Equal(t, DefaultRegisterPerHour, cfg.RateLimit.RegisterPerHour)
	assert.True(t, cfg.Server.CookieSecure)
}

func TestLoadDecodesFile(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9000"
cookie_secure = false

[auth]
access_secret = "access-secret-0123456789"
refresh_secret = "refresh-secret-0123456789"
access_token_ttl = "15m"
otp_ttl = "5m"
audience = ["web"]

[database]
driver = "postgres"
dsn = "postgres://localhost/accounts"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.False(t, cfg.Server.CookieSecure)
	assert.Equal(t, 15*time.Minute, cfg.Auth.GetAccessTokenTTL())
	assert.Equal(t, 5*time.Minute, cfg.Auth.GetOTPTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.GetRefreshTokenTTL())
	assert.Equal(t, []string{"web"}, cfg.Auth.GetAudience())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
[auth]
access_token_ttl = "soon"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ACCOUNTS_ACCESS_SECRET":  "from-env-access-secret",
		"ACCOUNTS_REFRESH_SECRET": "from-env-refresh-secret",
		"ACCOUNTS_SMTP_PORT":      "2525",
		"ACCOUNTS_LOG_DEV":        "true",
	}
	cfg := Defaults()
	err := cfg.applyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)

	assert.Equal(t, "from-env-access-secret", cfg.Auth.AccessSecret)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.True(t, cfg.Log.Dev)

	err = cfg.applyEnv(func(key string) (string, bool) {
		if key == "ACCOUNTS_SMTP_PORT" {
			return "abc", true
		}
		return "", false
	})
	assert.Error(t, err)
}

func TestApplyEnvCookieSecure(t *testing.T) {
	cfg := Defaults()
	require.True(t, cfg.Server.CookieSecure)

	err := cfg.applyEnv(func(key string) (string, bool) {
		if key == "ACCOUNTS_COOKIE_SECURE" {
			return "false", true
		}
		return "", false
	})
	require.NoError(t, err)
	assert.False(t, cfg.Server.CookieSecure)

	err = cfg.applyEnv(func(key string) (string, bool) {
		if key == "ACCOUNTS_COOKIE_SECURE" {
			return "sometimes", true
		}
		return "", false
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	assert.Error(t, cfg.Validate(), "secrets are required")

	cfg.Auth.AccessSecret = "same-secret-value-123"
	cfg.Auth.RefreshSecret = "same-secret-value-123"
	assert.Error(t, cfg.Validate(), "secrets must differ")

	cfg.Auth.RefreshSecret = "other-secret-value-123"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestSectionsEnabled(t *testing.T) {
	cfg := Defaults()
	assert.False(t, cfg.SMTP.Enabled())
	assert.False(t, cfg.Avatar.Enabled())

	cfg.SMTP.Host = "smtp.example.com"
	cfg.Avatar.Endpoint = "localhost:9000"
	assert.True(t, cfg.SMTP.Enabled())
	assert.True(t, cfg.Avatar.Enabled())
}
