// Package api exposes the account service over HTTP with fiber.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/middleware/jwtware"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refresh_token"

type ControllerRoutes struct {
	Auth  string
	Admin string
}

// RateLimits are per client IP budgets per hour. Zero disables a limit.
type RateLimits struct {
	Register int
	Verify   int
	Resend   int
	Window   time.Duration
}

type Controller struct {
	Debug            bool
	Logger           accounts.Logger
	Service          *accounts.Service
	Tokens           accounts.TokenService
	Routes           *ControllerRoutes
	Limits           RateLimits
	CookieSecure     bool
	RefreshCookieTTL time.Duration
	MaxAvatarBytes   int64
	Middleware       []fiber.Handler
}

type ControllerOption func(*Controller) *Controller

func WithService(s *accounts.Service) ControllerOption {
	return func(c *Controller) *Controller {
		c.Service = s
		return c
	}
}

func WithTokens(ts accounts.TokenService) ControllerOption {
	return func(c *Controller) *Controller {
		c.Tokens = ts
		return c
	}
}

func WithLogger(l accounts.Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

func WithRateLimits(limits RateLimits) ControllerOption {
	return func(c *Controller) *Controller {
		c.Limits = limits
		if c.Limits.Window <= 0 {
			c.Limits.Window = time.Hour
		}
		return c
	}
}

func WithSecureCookies(secure bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.CookieSecure = secure
		return c
	}
}

func WithRefreshCookieTTL(ttl time.Duration) ControllerOption {
	return func(c *Controller) *Controller {
		if ttl > 0 {
			c.RefreshCookieTTL = ttl
		}
		return c
	}
}

func WithMaxAvatarBytes(n int64) ControllerOption {
	return func(c *Controller) *Controller {
		c.MaxAvatarBytes = n
		return c
	}
}

// WithMiddleware prepends handlers to every route, e.g. metrics.
func WithMiddleware(handlers ...fiber.Handler) ControllerOption {
	return func(c *Controller) *Controller {
		c.Middleware = append(c.Middleware, handlers...)
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger: noopLogger{},
		Routes: &ControllerRoutes{
			Auth:  "/api/auth",
			Admin: "/api/admin",
		},
		Limits: RateLimits{
			Register: 10,
			Verify:   2,
			Resend:   1,
			Window:   time.Hour,
		},
		CookieSecure:     true,
		RefreshCookieTTL: accounts.DefaultRefreshTokenTTL,
		MaxAvatarBytes:   5 * 1024 * 1024,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing accounts Service in api controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in api controller...")
	}

	return c
}

// NewApp builds a fiber app with the JSON error handler and every route.
func NewApp(ctrl *Controller, bodyLimit int) *fiber.App {
	cfg := fiber.Config{
		ErrorHandler: ErrorHandler(ctrl.Logger),
	}
	if bodyLimit > 0 {
		cfg.BodyLimit = bodyLimit
	}

	app := fiber.New(cfg)
	RegisterRoutes(app, ctrl)
	return app
}

// RegisterRoutes mounts the auth and admin routes on r.
func RegisterRoutes(r fiber.Router, ctrl *Controller) {
	for _, mw := range ctrl.Middleware {
		r.Use(mw)
	}

	authenticated := ctrl.protect()

	auth := r.Group(ctrl.Routes.Auth)
	auth.Post("/register", ctrl.limit(ctrl.Limits.Register), ctrl.Register)
	auth.Post("/verify-email", ctrl.limit(ctrl.Limits.Verify), ctrl.VerifyEmail)
	auth.Post("/resend-otp", ctrl.limit(ctrl.Limits.Resend), ctrl.ResendOTP)
	auth.Post("/login", ctrl.Login)
	auth.Post("/refresh", ctrl.Refresh)
	auth.Post("/logout", ctrl.Logout)
	auth.Post("/forgot-password", ctrl.ForgotPassword)
	auth.Post("/reset-password", ctrl.ResetPassword)
	auth.Get("/validate-token", ctrl.ValidateToken)

	auth.Get("/me", authenticated, ctrl.Me)
	auth.Put("/me", authenticated, ctrl.UpdateMe)
	auth.Post("/me/avatar", authenticated, ctrl.UpdateAvatar)
	auth.Post("/change-password", authenticated, ctrl.ChangePassword)
	auth.Post("/apply-creator", authenticated, ctrl.ApplyCreator)

	admin := r.Group(ctrl.Routes.Admin, ctrl.protect(accounts.RoleAdmin))
	admin.Get("/creator-applications", ctrl.ListCreatorApplications)
	admin.Get("/accounts", ctrl.ListAccounts)
	admin.Post("/accounts/:username/approve-creator", ctrl.ApproveCreator)
	admin.Post("/accounts/:username/reject-creator", ctrl.RejectCreator)
	admin.Put("/accounts/:username/role", ctrl.AssignRole)
	admin.Post("/accounts/:username/suspend", ctrl.Suspend)
	admin.Post("/accounts/:username/reactivate", ctrl.Reactivate)
	admin.Post("/accounts/:username/block", ctrl.Block)

	// legacy paths kept for existing clients
	auth.Post("/refresh-token", ctrl.Refresh)
	auth.Put("/me/password", authenticated, ctrl.ChangePassword)
	auth.Post("/me/apply-creator", authenticated, ctrl.ApplyCreator)
	admin.Get("/users", ctrl.ListAccounts)
	admin.Get("/users/creator-applications", ctrl.ListCreatorApplications)
	admin.Put("/users/:username/approve", ctrl.ApproveCreator)
	admin.Put("/users/:username/role", ctrl.AssignRole)
	admin.Put("/users/:username/suspend", ctrl.Suspend)
	admin.Put("/users/:username/reactivate", ctrl.Reactivate)
	admin.Put("/users/:username/block", ctrl.Block)

	// must stay last so it does not shadow the named routes above
	auth.Get("/:username", ctrl.PublicProfile)
}

func (ctrl *Controller) protect(roles ...accounts.Role) fiber.Handler {
	return jwtware.New(jwtware.Config{
		TokenValidator: accounts.AccessTokenValidator(ctrl.Tokens),
		RequiredRoles:  roles,
		ContextEnricher: func(ctx context.Context, claims accounts.AuthClaims) context.Context {
			return accounts.WithClaimsContext(ctx, claims)
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return err
		},
	})
}

func (ctrl *Controller) limit(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: ctrl.Limits.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			ctrl.Logger.Warn("rate limit reached", "path", c.Path(), "ip", c.IP())
			return accounts.ErrTooManyRequests
		},
	})
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
