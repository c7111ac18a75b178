package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/api"
	"github.com/goliatone/go-accounts/config"
)

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "accountsd",
		Short:         "User accounts and authentication service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to the TOML config file")

	root.AddCommand(
		newServeCommand(&configPath),
		newMigrateCommand(&configPath),
		newCreateAdminCommand(&configPath),
	)

	return root
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.repos.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			if rt.cfg.Admin.Username != "" {
				if err := bootstrapAdmin(ctx, rt); err != nil {
					return err
				}
			}

			opts := []api.ControllerOption{
				api.WithService(rt.service),
				api.WithTokens(rt.tokens),
				api.WithLogger(rt.log.Named("http")),
				api.WithDebug(rt.cfg.Log.Dev),
				api.WithSecureCookies(rt.cfg.Server.CookieSecure),
				api.WithRefreshCookieTTL(rt.cfg.Auth.GetRefreshTokenTTL()),
				api.WithMaxAvatarBytes(rt.cfg.Avatar.MaxBytes),
				api.WithRateLimits(api.RateLimits{
					Register: rt.cfg.RateLimit.RegisterPerHour,
					Verify:   rt.cfg.RateLimit.VerifyPerHour,
					Resend:   rt.cfg.RateLimit.ResendPerHour,
					Window:   time.Hour,
				}),
			}
			if rt.metrics != nil {
				opts = append(opts, api.WithMiddleware(rt.metrics.Middleware()))
			}

			app := api.NewApp(api.NewController(opts...), rt.cfg.Server.BodyLimit)
			if rt.metrics != nil {
				app.Get("/metrics", adaptor.HTTPHandler(rt.metrics.Handler()))
			}

			errCh := make(chan error, 1)
			go func() {
				rt.log.Info("http server listening", "addr", rt.cfg.Server.Addr)
				errCh <- app.Listen(rt.cfg.Server.Addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			rt.log.Info("shutting down")
			return app.ShutdownWithTimeout(5 * time.Second)
		},
	}
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the accounts schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.repos.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			rt.log.Info("schema up to date")
			return nil
		},
	}
}

func newCreateAdminCommand(configPath *string) *cobra.Command {
	var username, email, password, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a verified admin account when it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.repos.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			if username != "" {
				rt.cfg.Admin.Username = username
			}
			if email != "" {
				rt.cfg.Admin.Email = email
			}
			if password != "" {
				rt.cfg.Admin.Password = password
			}
			if name != "" {
				rt.cfg.Admin.Name = name
			}

			if rt.cfg.Admin.Username == "" {
				return errors.New("admin username is required, use --username or [admin] in the config")
			}

			return bootstrapAdmin(cmd.Context(), rt)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&name, "name", "", "admin display name")

	return cmd
}

func bootstrapAdmin(ctx context.Context, rt *runtime) error {
	account, created, err := rt.service.BootstrapAdmin(ctx, accounts.BootstrapAdminMessage{
		Username: rt.cfg.Admin.Username,
		Email:    rt.cfg.Admin.Email,
		Password: rt.cfg.Admin.Password,
		Name:     rt.cfg.Admin.Name,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	if created {
		rt.log.Info("admin account created", "username", account.Username)
	} else {
		rt.log.Info("admin account already exists", "username", account.Username, "role", account.Role)
	}
	return nil
}

