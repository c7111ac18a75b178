package main

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/avatar"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/logger"
	"github.com/goliatone/go-accounts/metrics"
	"github.com/goliatone/go-accounts/notify"
	"github.com/goliatone/go-accounts/persistence"
)

// runtime holds the collaborators shared by every command.
type runtime struct {
	cfg     config.Config
	zap     *zap.Logger
	log     *logger.Adapter
	db      *bun.DB
	repos   accounts.RepositoryManager
	tokens  accounts.TokenService
	service *accounts.Service
	metrics *metrics.Metrics
}

func newRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.NewAdapter(zl).Named("accounts")

	db, err := persistence.Open(cfg.Database.Driver, cfg.Database.DSN, persistence.WithQueryDebug(cfg.Database.Debug))
	if err != nil {
		return nil, err
	}

	repos := accounts.NewRepositoryManager(db)
	repos.MustValidate()

	tokens, err := accounts.NewTokenServiceFromConfig(cfg.Auth, log.Named("tokens"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var notifier accounts.Notifier = notify.NewLog(log.Named("mail"))
	if cfg.SMTP.Enabled() {
		smtp, err := notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			TLS:      cfg.SMTP.TLS,
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		notifier = smtp
	}

	mailer, err := accounts.NewMailer(notifier, accounts.WithMailerAppName(cfg.App.Name))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	rt := &runtime{
		cfg:    cfg,
		zap:    zl,
		log:    log,
		db:     db,
		repos:  repos,
		tokens: tokens,
	}

	sinks := accounts.MultiActivitySink{
		activitymap.LogSink(log.Named("audit"), activitymap.WithDefaultChannel(cfg.App.Name)),
	}
	if cfg.Server.Metrics {
		rt.metrics = metrics.New(metrics.DefaultNamespace)
		sinks = append(sinks, rt.metrics)
	}

	opts := []accounts.ServiceOption{
		accounts.WithLogger(log.Named("service")),
		accounts.WithMailer(mailer),
		accounts.WithOTPTTL(cfg.Auth.GetOTPTTL()),
		accounts.WithActivitySink(sinks),
		accounts.WithStatelessRefresh(cfg.Auth.StatelessRefresh),
		accounts.WithConcealedPasswordReset(cfg.Auth.ConcealPasswordReset),
		accounts.WithHashidIdentifiers(cfg.Auth.HashidIdentifiers),
	}

	if cfg.Avatar.Enabled() {
		store, err := avatar.New(avatar.Config{
			Endpoint:  cfg.Avatar.Endpoint,
			AccessKey: cfg.Avatar.AccessKey,
			SecretKey: cfg.Avatar.SecretKey,
			Bucket:    cfg.Avatar.Bucket,
			Folder:    cfg.Avatar.Folder,
			UseSSL:    cfg.Avatar.UseSSL,
			PublicURL: cfg.Avatar.PublicURL,
			MaxBytes:  cfg.Avatar.MaxBytes,
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Warn("avatar bucket check failed", "error", err)
		}
		opts = append(opts, accounts.WithAvatarStore(store))
	}

	rt.service = accounts.NewService(repos.Accounts(), tokens, opts...)
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.db != nil {
		_ = rt.db.Close()
	}
	if rt.zap != nil {
		_ = rt.zap.Sync()
	}
}
