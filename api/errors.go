package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	accounts "github.com/goliatone/go-accounts"
)

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// StatusFor maps an error category to an HTTP status.
func StatusFor(richErr *goerrors.Error) int {
	return accounts.HTTPStatus(richErr)
}

// ErrorHandler renders errors as {"error":{"code","message","fields"}}.
// Internal details are logged, never returned.
func ErrorHandler(logger accounts.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = noopLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(errorBody{Error: errorPayload{
				Code:    http.StatusText(fe.Code),
				Message: fe.Message,
			}})
		}

		richErr, ok := accounts.AsRichError(err)
		if !ok {
			richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
				WithCode(goerrors.CodeInternal)
		}

		status := StatusFor(richErr)
		payload := errorPayload{
			Code:    richErr.TextCode,
			Message: richErr.Message,
			Fields:  validationFields(richErr),
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"path", c.Path(),
				"error", err,
				"category", richErr.Category,
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
			if status == http.StatusInternalServerError {
				payload.Message = "An unexpected server error occurred"
			}
		} else {
			logger.Debug("request rejected", "path", c.Path(), "status", status, "code", richErr.TextCode)
		}

		if payload.Code == "" {
			payload.Code = http.StatusText(status)
		}

		return c.Status(status).JSON(errorBody{Error: payload})
	}
}

func validationFields(richErr *goerrors.Error) map[string]string {
	if richErr.Metadata == nil {
		return nil
	}
	fields, _ := richErr.Metadata["fields"].(map[string]string)
	return fields
}
