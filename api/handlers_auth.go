package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/middleware/jwtware"
)

type tokenResponse struct {
	AccessToken string                  `json:"access_token"`
	TokenType   string                  `json:"token_type"`
	ExpiresAt   time.Time               `json:"expires_at"`
	User        *accounts.AccountDetail `json:"user,omitempty"`
}

// Register accepts JSON or multipart form data. A multipart "avatar" file is
// uploaded before the account is stored.
func (ctrl *Controller) Register(c *fiber.Ctx) error {
	var msg accounts.RegisterAccountMessage
	if err := parseBody(c, &msg); err != nil {
		return err
	}

	if ctrl.Debug {
		ctrl.Logger.Debug("register payload", "payload", print.MaybePrettyJSON(msg.Redacted()))
	}

	if err := msg.Validate(); err != nil {
		return err
	}

	upload, closer, err := ctrl.formAvatar(c, "avatar", false)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	msg.Avatar = upload

	account, err := ctrl.Service.Register(c.UserContext(), msg)
	if err != nil {
		if account != nil && accounts.IsNotificationFailure(err) {
			return c.Status(http.StatusAccepted).JSON(fiber.Map{
				"message": "account created, but the verification email could not be sent; request a new code",
				"user":    accounts.NewAccountDetail(account),
			})
		}
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "account created, check your email for the verification code",
		"user":    accounts.NewAccountDetail(account),
	})
}

func (ctrl *Controller) VerifyEmail(c *fiber.Ctx) error {
	var msg accounts.VerifyEmailMessage
	if err := parseValid(c, &msg); err != nil {
		return err
	}

	account, err := ctrl.Service.VerifyEmail(c.UserContext(), msg.Username, msg.Code)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "email verified",
		"user":    accounts.NewAccountDetail(account),
	})
}

func (ctrl *Controller) ResendOTP(c *fiber.Ctx) error {
	var msg accounts.ResendOTPMessage
	if err := parseValid(c, &msg); err != nil {
		return err
	}

	if _, err := ctrl.Service.ResendVerificationCode(c.UserContext(), msg.Username); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "a new verification code was sent"})
}

func (ctrl *Controller) Login(c *fiber.Ctx) error {
	var msg accounts.LoginMessage
	if err := parseValid(c, &msg); err != nil {
		return err
	}

	result, err := ctrl.Service.Login(c.UserContext(), msg.Login(), msg.Password)
	if err != nil {
		return err
	}

	ctrl.setRefreshCookie(c, result.Tokens)

	detail := accounts.NewAccountDetail(result.Account)
	return c.JSON(tokenResponse{
		AccessToken: result.Tokens.AccessToken,
		TokenType:   result.Tokens.TokenType,
		ExpiresAt:   result.Tokens.AccessExpiresAt,
		User:        &detail,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh reads the refresh token from its cookie, falling back to the body.
func (ctrl *Controller) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(RefreshCookieName)
	if token == "" && len(c.Body()) > 0 {
		var body refreshRequest
		if err := c.BodyParser(&body); err == nil {
			token = body.RefreshToken
		}
	}

	pair, err := ctrl.Service.Refresh(c.UserContext(), token)
	if err != nil {
		ctrl.clearRefreshCookie(c)
		return err
	}

	ctrl.setRefreshCookie(c, pair)

	return c.JSON(tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresAt:   pair.AccessExpiresAt,
	})
}

// Logout clears the refresh cookie. Issued tokens stay valid until expiry.
func (ctrl *Controller) Logout(c *fiber.Ctx) error {
	ctrl.clearRefreshCookie(c)
	return c.JSON(fiber.Map{"message": "logged out"})
}

func (ctrl *Controller) ForgotPassword(c *fiber.Ctx) error {
	var msg accounts.ForgotPasswordMessage
	if err := parseValid(c, &msg); err != nil {
		return err
	}

	if err := ctrl.Service.ForgotPassword(c.UserContext(), msg.Email); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "if the account exists a reset code was sent"})
}

func (ctrl *Controller) ResetPassword(c *fiber.Ctx) error {
	var msg accounts.ResetPasswordMessage
	if err := parseValid(c, &msg); err != nil {
		return err
	}

	if err := ctrl.Service.ResetPassword(c.UserContext(), msg.Email, msg.Code, msg.NewPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "password updated"})
}

var bearerExtractors = jwtware.GetExtractors("header:" + fiber.HeaderAuthorization)

func (ctrl *Controller) ValidateToken(c *fiber.Ctx) error {
	raw, err := jwtware.ExtractRawToken(c, bearerExtractors)
	if err != nil {
		return err
	}

	identity, err := ctrl.Service.ValidateAccessToken(c.UserContext(), raw)
	if err != nil {
		return err
	}

	return c.JSON(identity)
}

func (ctrl *Controller) setRefreshCookie(c *fiber.Ctx, pair accounts.TokenPair) {
	maxAge := ctrl.RefreshCookieTTL
	if !pair.RefreshExpiresAt.IsZero() {
		maxAge = time.Until(pair.RefreshExpiresAt)
	}

	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		HTTPOnly: true,
		Secure:   ctrl.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (ctrl *Controller) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   ctrl.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

type validatable interface {
	Validate() error
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return accounts.InvalidPayload(err)
	}
	return nil
}

func parseValid(c *fiber.Ctx, msg validatable) error {
	if err := parseBody(c, msg); err != nil {
		return err
	}
	return msg.Validate()
}

// formAvatar opens the multipart file field. Missing files are allowed unless
// required is set.
func (ctrl *Controller) formAvatar(c *fiber.Ctx, field string, required bool) (*accounts.AvatarUpload, io.Closer, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		if required {
			return nil, nil, accounts.ErrAvatarInvalid
		}
		return nil, nil, nil
	}

	fh, err := c.FormFile(field)
	if err != nil {
		if required {
			return nil, nil, accounts.ErrAvatarInvalid
		}
		return nil, nil, nil
	}

	if ctrl.MaxAvatarBytes > 0 && fh.Size > ctrl.MaxAvatarBytes {
		return nil, nil, accounts.ErrAvatarInvalid
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, accounts.InvalidPayload(err)
	}

	return &accounts.AvatarUpload{
		Reader:      f,
		Size:        fh.Size,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Filename:    fh.Filename,
	}, f, nil
}
