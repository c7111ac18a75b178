package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/api"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{accounts.ErrAccountNotFound, http.StatusNotFound},
		{accounts.ErrEmailTaken, http.StatusConflict},
		{accounts.ErrStaleState, http.StatusConflict},
		{accounts.ErrInvalidOTP, http.StatusBadRequest},
		{accounts.ErrNoEmptyString, http.StatusBadRequest},
		{accounts.ErrInvalidToken, http.StatusUnauthorized},
		{accounts.ErrInsufficientRole, http.StatusForbidden},
		{accounts.ErrTooManyRequests, http.StatusTooManyRequests},
		{accounts.ErrNotificationFailed, http.StatusBadGateway},
		{accounts.ErrInvalidTokenSecrets, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rich, ok := accounts.AsRichError(tt.err)
		require.True(t, ok)
		assert.Equal(t, tt.expected, api.StatusFor(rich), tt.err.Error())
	}
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler(nopLogger{})})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("pq: connection refused to 10.0.0.1")
	})
	app.Get("/wrapped", func(c *fiber.Ctx) error {
		return goerrors.Wrap(errors.New("disk full"), goerrors.CategoryInternal, "failed to update account")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.ErrMethodNotAllowed
	})

	for _, path := range []string{"/boom", "/wrapped"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "An unexpected server error occurred", body["error"]["message"])
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fiber", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestErrorHandler_NilLogger(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler(nil)})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("connection reset")
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return accounts.ErrAccountNotFound
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
