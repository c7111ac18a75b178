package accounts

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeAccountNotFound         = "ACCOUNT_NOT_FOUND"
	TextCodeUsernameTaken           = "USERNAME_TAKEN"
	TextCodeEmailTaken              = "EMAIL_TAKEN"
	TextCodeEmailAlreadyVerified    = "EMAIL_ALREADY_VERIFIED"
	TextCodeEmailNotVerified        = "EMAIL_NOT_VERIFIED"
	TextCodeAccountInactive         = "ACCOUNT_INACTIVE"
	TextCodeInvalidCreds            = "INVALID_CREDENTIALS"
	TextCodeInvalidToken            = "INVALID_TOKEN"
	TextCodeMissingToken            = "MISSING_TOKEN"
	TextCodeInvalidOTP              = "INVALID_OTP"
	TextCodeOTPExpired              = "OTP_EXPIRED"
	TextCodeNoPendingOTP            = "NO_PENDING_OTP"
	TextCodeNoPendingReset          = "NO_PENDING_PASSWORD_RESET"
	TextCodeWrongPassword           = "WRONG_PASSWORD"
	TextCodeEmptyPassword           = "EMPTY_PASSWORD"
	TextCodePasswordTooLong         = "PASSWORD_TOO_LONG"
	TextCodeInvalidPayload          = "INVALID_PAYLOAD"
	TextCodeInvalidRole             = "INVALID_ROLE"
	TextCodeInvalidStatus           = "INVALID_STATUS"
	TextCodeInsufficientRole        = "INSUFFICIENT_ROLE"
	TextCodeCreatorOnlyForUsers     = "CREATOR_APPLICATION_USER_ONLY"
	TextCodeApplicationExists       = "CREATOR_APPLICATION_EXISTS"
	TextCodeApplicationClosed       = "CREATOR_APPLICATION_CLOSED"
	TextCodeApplicationNotPending   = "CREATOR_APPLICATION_NOT_PENDING"
	TextCodeStaleState              = "STALE_ACCOUNT_STATE"
	TextCodeNotificationFailed      = "NOTIFICATION_FAILED"
	TextCodeAvatarUploadFailed      = "AVATAR_UPLOAD_FAILED"
	TextCodeAvatarInvalid           = "AVATAR_INVALID"
	TextCodeTokenRoleMismatch       = "TOKEN_ROLE_MISMATCH"
	TextCodeTooManyRequests         = "TOO_MANY_REQUESTS"
	TextCodeInvalidTokenSecretSetup = "INVALID_TOKEN_SECRETS"
)

// ErrAccountNotFound is returned when no account matches the lookup.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUsernameTaken is returned when registering with a username in use.
var ErrUsernameTaken = goerrors.New("username already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(goerrors.CodeConflict)

// ErrEmailTaken is returned when registering with an email in use.
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrEmailAlreadyVerified is returned when verifying an already verified email.
var ErrEmailAlreadyVerified = goerrors.New("email already verified", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailAlreadyVerified).
	WithCode(goerrors.CodeConflict)

// ErrEmailNotVerified blocks login until the email is verified.
var ErrEmailNotVerified = goerrors.New("email is not verified", goerrors.CategoryAuthz).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(goerrors.CodeForbidden)

// ErrMismatchedHashAndPassword is the single login failure for unknown
// identifiers and wrong passwords.
var ErrMismatchedHashAndPassword = goerrors.New("incorrect username/email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidToken covers malformed, expired, mis-signed and wrong-type tokens.
var ErrInvalidToken = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingToken is returned when a request carries no token.
var ErrMissingToken = goerrors.New("missing authentication token", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenRoleMismatch is returned when a token role no longer matches the account.
var ErrTokenRoleMismatch = goerrors.New("token role does not match account role", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRoleMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrInsufficientRole is returned by role guards.
var ErrInsufficientRole = goerrors.New("insufficient role for this action", goerrors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidOTP is returned when the presented code does not match.
var ErrInvalidOTP = goerrors.New("invalid verification code", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidOTP).
	WithCode(goerrors.CodeBadRequest)

// ErrOTPExpired is returned when the presented code is past its expiry.
var ErrOTPExpired = goerrors.New("verification code has expired", goerrors.CategoryBadInput).
	WithTextCode(TextCodeOTPExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrNoPendingOTP is returned when verification is attempted without a code on record.
var ErrNoPendingOTP = goerrors.New("no verification code pending", goerrors.CategoryBadInput).
	WithTextCode(TextCodeNoPendingOTP).
	WithCode(goerrors.CodeBadRequest)

// ErrNoPendingReset is returned when a reset is attempted without a reset code on record.
var ErrNoPendingReset = goerrors.New("no password reset requested", goerrors.CategoryBadInput).
	WithTextCode(TextCodeNoPendingReset).
	WithCode(goerrors.CodeBadRequest)

// ErrWrongPassword is returned by change password when the old password is wrong.
var ErrWrongPassword = goerrors.New("old password is incorrect", goerrors.CategoryBadInput).
	WithTextCode(TextCodeWrongPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordTooLong is returned for passwords above the bcrypt input limit.
var ErrPasswordTooLong = goerrors.New("password exceeds 72 bytes", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordTooLong).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidRole is returned for role values outside the closed set.
var ErrInvalidRole = goerrors.New("invalid role", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidRole).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidStatus is returned for status values outside the closed set.
var ErrInvalidStatus = goerrors.New("invalid account status", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidStatus).
	WithCode(goerrors.CodeBadRequest)

// ErrCreatorApplicationUserOnly is returned when a non user applies for creator.
var ErrCreatorApplicationUserOnly = goerrors.New("only users can apply for creator role", goerrors.CategoryAuthz).
	WithTextCode(TextCodeCreatorOnlyForUsers).
	WithCode(goerrors.CodeForbidden)

// ErrCreatorApplicationExists is returned for a pending or approved application.
var ErrCreatorApplicationExists = goerrors.New("creator application already submitted", goerrors.CategoryConflict).
	WithTextCode(TextCodeApplicationExists).
	WithCode(goerrors.CodeConflict)

// ErrCreatorApplicationClosed is returned when applying after a rejection.
var ErrCreatorApplicationClosed = goerrors.New("creator application was rejected", goerrors.CategoryConflict).
	WithTextCode(TextCodeApplicationClosed).
	WithCode(goerrors.CodeConflict)

// ErrCreatorApplicationNotPending is returned when approving or rejecting a
// non pending application.
var ErrCreatorApplicationNotPending = goerrors.New("no pending creator application", goerrors.CategoryConflict).
	WithTextCode(TextCodeApplicationNotPending).
	WithCode(goerrors.CodeConflict)

// ErrStaleState is returned by guarded updates when the row changed since it was read.
var ErrStaleState = goerrors.New("account was modified concurrently", goerrors.CategoryConflict).
	WithTextCode(TextCodeStaleState).
	WithCode(goerrors.CodeConflict)

// ErrNotificationFailed is returned when a message could not be dispatched.
// The state change that triggered it stays committed.
var ErrNotificationFailed = goerrors.New("failed to deliver notification", goerrors.CategoryOperation).
	WithTextCode(TextCodeNotificationFailed).
	WithCode(goerrors.CodeInternal)

// ErrAvatarUploadFailed is returned when the avatar store rejects an upload.
var ErrAvatarUploadFailed = goerrors.New("failed to upload avatar", goerrors.CategoryOperation).
	WithTextCode(TextCodeAvatarUploadFailed).
	WithCode(goerrors.CodeInternal)

// ErrAvatarInvalid is returned for empty or non image uploads.
var ErrAvatarInvalid = goerrors.New("avatar must be a non empty image", goerrors.CategoryBadInput).
	WithTextCode(TextCodeAvatarInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrTooManyRequests is returned when a client exceeds a request budget.
var ErrTooManyRequests = goerrors.New("too many requests, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyRequests).
	WithCode(http.StatusTooManyRequests)

// ErrInvalidTokenSecrets is returned when token secrets are empty or shared.
var ErrInvalidTokenSecrets = goerrors.New("access and refresh secrets must be set and distinct", goerrors.CategoryInternal).
	WithTextCode(TextCodeInvalidTokenSecretSetup).
	WithCode(goerrors.CodeInternal)

// ErrAccountInactive builds the login failure for a non active account.
func ErrAccountInactive(status AccountStatus) error {
	return goerrors.New(fmt.Sprintf("account is %s", status), goerrors.CategoryAuthz).
		WithTextCode(TextCodeAccountInactive).
		WithCode(goerrors.CodeForbidden).
		WithMetadata(map[string]any{"status": string(status)})
}

// IsNotificationFailure reports whether err carries a dispatch failure.
func IsNotificationFailure(err error) bool {
	return hasTextCode(err, TextCodeNotificationFailed)
}

// HasTextCode reports whether err is a rich error with the given text code.
func HasTextCode(err error, code string) bool {
	return hasTextCode(err, code)
}

// AsRichError unwraps err into a go-errors value.
func AsRichError(err error) (*goerrors.Error, bool) {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr, true
	}
	return nil, false
}

// HTTPStatus maps an error category to an HTTP status, falling back to the
// error code when the category has no fixed status.
func HTTPStatus(richErr *goerrors.Error) int {
	if richErr == nil {
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryOperation:
		return http.StatusBadGateway
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}

func hasTextCode(err error, code string) bool {
	if richErr, ok := AsRichError(err); ok {
		return richErr.TextCode == code
	}
	return false
}

// withCause returns a copy of base carrying cause as its source.
func withCause(base *goerrors.Error, cause error, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	if cause != nil {
		clone.Source = cause
		if meta == nil {
			meta = map[string]any{}
		}
		meta["error"] = cause.Error()
	}
	if len(meta) > 0 {
		clone = clone.WithMetadata(meta)
	}
	return clone
}

func internalError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if errors.As(err, &richErr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
