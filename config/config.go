// Package config loads the accountsd configuration from TOML with
// environment overrides.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/logger"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "accounts.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultAppName         = "Accounts"
	DefaultDatabaseDriver  = "sqlite"
	DefaultDatabaseDSN     = "file:accounts.db?cache=shared"
	DefaultIssuer          = "go-accounts"
	DefaultSMTPPort        = 587
	DefaultAvatarBucket    = "avatars"
	DefaultAvatarFolder    = "profiles"
	DefaultRegisterPerHour = 10
	DefaultVerifyPerHour   = 2
	DefaultResendPerHour   = 1
	EnvPrefix              = "ACCOUNTS_"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	App       AppConfig       `toml:"app"`
	Log       logger.Config   `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Database  DatabaseConfig  `toml:"database"`
	SMTP      SMTPConfig      `toml:"smtp"`
	Avatar    AvatarConfig    `toml:"avatar"`
	Admin     AdminConfig     `toml:"admin"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// AppConfig names the product in outgoing mail.
type AppConfig struct {
	Name string `toml:"name"`
}

// ServerConfig holds the HTTP listener options.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	CookieSecure bool   `toml:"cookie_secure"`
	BodyLimit    int    `toml:"body_limit"`
	Metrics      bool   `toml:"metrics"`
}

// AuthConfig holds token secrets and lifetimes. It satisfies accounts.Config.
type AuthConfig struct {
	AccessSecret         string   `toml:"access_secret"`
	RefreshSecret        string   `toml:"refresh_secret"`
	AccessTokenTTL       Duration `toml:"access_token_ttl"`
	RefreshTokenTTL      Duration `toml:"refresh_token_ttl"`
	OTPTTL               Duration `toml:"otp_ttl"`
	Issuer               string   `toml:"issuer"`
	Audience             []string `toml:"audience"`
	StatelessRefresh     bool     `toml:"stateless_refresh"`
	ConcealPasswordReset bool     `toml:"conceal_password_reset"`
	HashidIdentifiers    bool     `toml:"hashid_identifiers"`
}

var _ accounts.Config = AuthConfig{}

func (a AuthConfig) GetAccessSigningKey() string       { return a.AccessSecret }
func (a AuthConfig) GetRefreshSigningKey() string      { return a.RefreshSecret }
func (a AuthConfig) GetAccessTokenTTL() time.Duration  { return a.AccessTokenTTL.Duration }
func (a AuthConfig) GetRefreshTokenTTL() time.Duration { return a.RefreshTokenTTL.Duration }
func (a AuthConfig) GetOTPTTL() time.Duration          { return a.OTPTTL.Duration }
func (a AuthConfig) GetIssuer() string                 { return a.Issuer }
func (a AuthConfig) GetAudience() []string             { return a.Audience }

// DatabaseConfig selects the bun dialect. Driver is sqlite or postgres.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
	Debug  bool   `toml:"debug"`
}

// SMTPConfig holds outbound mail settings. An empty host logs codes instead
// of sending them.
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
	TLS      bool   `toml:"tls"`
}

// Enabled reports whether an SMTP relay is configured.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

// AvatarConfig holds the object storage used for profile pictures. An empty
// endpoint disables uploads.
type AvatarConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Folder    string `toml:"folder"`
	UseSSL    bool   `toml:"use_ssl"`
	PublicURL string `toml:"public_url"`
	MaxBytes  int64  `toml:"max_bytes"`
}

// Enabled reports whether avatar storage is configured.
func (a AvatarConfig) Enabled() bool {
	return strings.TrimSpace(a.Endpoint) != ""
}

// AdminConfig holds the bootstrap admin account created by create-admin.
type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Email    string `toml:"email"`
	Name     string `toml:"name"`
}

// RateLimitConfig holds per IP request budgets per hour. Zero disables a limit.
type RateLimitConfig struct {
	RegisterPerHour int `toml:"register_per_hour"`
	VerifyPerHour   int `toml:"verify_per_hour"`
	ResendPerHour   int `toml:"resend_per_hour"`
}

// Duration decodes TOML strings such as "30m" or "168h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the configuration used for missing fields.
func Defaults() Config {
	return Config{
		App: AppConfig{Name: DefaultAppName},
		Log: logger.Config{Level: "info"},
		Server: ServerConfig{
			Addr:         DefaultHTTPAddr,
			CookieSecure: true,
			BodyLimit:    6 * 1024 * 1024,
		},
		Auth: AuthConfig{
			AccessTokenTTL:  Duration{accounts.DefaultAccessTokenTTL},
			RefreshTokenTTL: Duration{accounts.DefaultRefreshTokenTTL},
			OTPTTL:          Duration{accounts.DefaultOTPTTL},
			Issuer:          DefaultIssuer,
		},
		Database: DatabaseConfig{
			Driver: DefaultDatabaseDriver,
			DSN:    DefaultDatabaseDSN,
		},
		SMTP: SMTPConfig{Port: DefaultSMTPPort},
		Avatar: AvatarConfig{
			Bucket:   DefaultAvatarBucket,
			Folder:   DefaultAvatarFolder,
			MaxBytes: 5 * 1024 * 1024,
		},
		RateLimit: RateLimitConfig{
			RegisterPerHour: DefaultRegisterPerHour,
			VerifyPerHour:   DefaultVerifyPerHour,
			ResendPerHour:   DefaultResendPerHour,
		},
	}
}

// Load reads the TOML file at path over the defaults, then applies
// ACCOUNTS_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the settings required to serve requests.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c.Auth,
		validation.Field(&c.Auth.AccessSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.Auth.RefreshSecret, validation.Required, validation.Length(16, 0)),
	)
	if err != nil {
		return err
	}

	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("auth.access_secret and auth.refresh_secret must differ")
	}

	return validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Driver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&c.Database.DSN, validation.Required),
	)
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	str("SERVER_ADDR", &c.Server.Addr)
	str("ACCESS_SECRET", &c.Auth.AccessSecret)
	str("REFRESH_SECRET", &c.Auth.RefreshSecret)
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_DSN", &c.Database.DSN)
	str("SMTP_HOST", &c.SMTP.Host)
	str("SMTP_USERNAME", &c.SMTP.Username)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("SMTP_FROM", &c.SMTP.From)
	str("AVATAR_ENDPOINT", &c.Avatar.Endpoint)
	str("AVATAR_ACCESS_KEY", &c.Avatar.AccessKey)
	str("AVATAR_SECRET_KEY", &c.Avatar.SecretKey)
	str("ADMIN_USERNAME", &c.Admin.Username)
	str("ADMIN_PASSWORD", &c.Admin.Password)
	str("ADMIN_EMAIL", &c.Admin.Email)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup(EnvPrefix + "SMTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("ACCOUNTS_SMTP_PORT must be a number")
		}
		c.SMTP.Port = port
	}

	if v, ok := lookup(EnvPrefix + "LOG_DEV"); ok {
		c.Log.Dev = v == "1" || strings.EqualFold(v, "true")
	}

	// plain HTTP development servers need ACCOUNTS_COOKIE_SECURE=false
	if v, ok := lookup(EnvPrefix + "COOKIE_SECURE"); ok {
		secure, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.New("ACCOUNTS_COOKIE_SECURE must be a boolean")
		}
		c.Server.CookieSecure = secure
	}

	return nil
}
