package accounts

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var genderValues = []any{string(GenderMale), string(GenderFemale), string(GenderOther)}

var roleValues = []any{string(RoleUser), string(RoleCreator), string(RoleAdmin)}

// RegisterAccountMessage is the registration payload
type RegisterAccountMessage struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
	Country  string `json:"country" form:"country"`
	Gender   string `json:"gender" form:"gender"`
	Phone    string `json:"phone,omitempty" form:"phone"`
	// Avatar is optional; set by the transport when a file is attached.
	Avatar *AvatarUpload `json:"-" form:"-"`
}

func (m RegisterAccountMessage) Type() string { return "account.register" }

// Validate will run validation rules
func (m RegisterAccountMessage) Validate() error {
	return validationError(validation.ValidateStruct(&m,
		validation.Field(&m.Username, usernameRules()...),
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Password, passwordRules()...),
		validation.Field(&m.Name, validation.Required, validation.Length(2, 50)),
		validation.Field(&m.Country, validation.Required, validation.Length(2, 50)),
		validation.Field(&m.Gender, validation.Required, validation.In(genderValues...)),
		validation.Field(&m.Phone, validation.By(ValidatePhone(m.Country))),
	))
}

// Redacted returns a copy safe for logging.
func (m RegisterAccountMessage) Redacted() RegisterAccountMessage {
	m.Password = redact(m.Password)
	m.Avatar = nil
	return m
}

// VerifyEmailMessage confirms an email with the code sent at registration
type VerifyEmailMessage struct {
	Username string `json:"username"`
	Code     string `json:"otp"`
}

func (m VerifyEmailMessage) Type() string { return "account.verify_email" }

// Validate will run validation rules
func (m VerifyEmailMessage) Validate() error {
	return validationError(validation.ValidateStruct(&m,
		validation.Field(&m.Username, validation.Required),
		validation.Field(&m.Code, validation.Required, is.Digit, validation.Length(DefaultOTPDigits, DefaultOTPDigits)),
	))
}

// ResendOTPMessage requests a new verification code
type ResendOTPMessage struct {
	Username string `json:"username"`
}

func (m ResendOTPMessage) Type() string { return "account.resend_otp" }

// Validate will run validation rules
func (m ResendOTPMessage) Validate() error {
	return validationError(validation.ValidateStruct(&m,
		validation.Field(&m.Username, validation.Required),
	))
}

// LoginMessage payload
type LoginMessage struct {
	Identifier      string `json:"identifier" form:"identifier"`
	UsernameOrEmail string `json:"username_or_email,omitempty" form:"username_or_email"`
	Password        string `json:"password" form:"password"`
}

// Login returns the username or email the caller signed in with.
func (m LoginMessage) Login() string {
	if m.Identifier != "" {
		return m.Identifier
	}
	return m.UsernameOrEmail
}

func (m LoginMessage) Type() string { return "auth.login" }

// Validate will run validation rules
func (m LoginMessage) Validate() error {
	m.Identifier = m.Login()
	return validationError(validation.ValidateStruct(&m,
		validation.Field(&m.Identifier, validation.Required),
		validation.Field(&m.Password, validation.Required),
	))
}

// ForgotPasswordMessage starts a password reset
type ForgotPasswordMessage struct {
	Email string `json:"email"`
}

func (m ForgotPasswordMessage) Type() string { return "auth.password.forgot" }

// Validate will run validation rules
func (m ForgotPasswordMessage) Validate() error {
	return validationError(validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
	))
}

// ResetPasswordMessage finishes a password reset
type ResetPasswordMessage struct {
	Email       string `json:"email"`
	Code        string `json:"otp"`
	NewPassword string `json:"new_password"`
}

func (m ResetPasswordMessage) Type() string { return "auth.password.reset" }

// Validate will run validation rules
func (m ResetPasswordMessage) Validate() error {
	return validationError(validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Code, validation.Required, is.Digit, validation.Length(DefaultOTPDigits, DefaultOTPDigits)),
		validation.Field(&m.NewPassword, passwordRules()...),
	))
}

// ChangePasswordMessage replaces the password of an authenticated account
type ChangePasswordMessage struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (m ChangePasswordMessage) Type() string { return "auth.password.change" }

// Validate will run validation rules
func (m ChangePasswordMessage) Validate() error {
	return validationError(validation.ValidateStruct(&m,
		validation.Field(&m.OldPassword, validation.Required),
		validation.Field(&m.NewPassword, passwordRules()...),
	))
}

// AssignRoleMessage sets the role of an account
type AssignRoleMessage struct {
	Role string `json:"role"`
}

func (m AssignRoleMessage) Type() string { return "admin.assign_role" }

// Validate will run validation rules
func (m AssignRoleMessage) Validate() error {
	return validationError(validation.ValidateStruct(&m,
		validation.Field(&m.Role, validation.Required, validation.In(roleValues...)),
	))
}

// BootstrapAdminMessage describes the first admin account
type BootstrapAdminMessage struct {
	Username string `toml:"username"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

func (m BootstrapAdminMessage) Type() string { return "admin.bootstrap" }

// Validate will run validation rules
func (m BootstrapAdminMessage) Validate() error {
	return validationError(validation.ValidateStruct(&m,
		validation.Field(&m.Username, usernameRules()...),
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Password, passwordRules()...),
	))
}

func usernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(3, 20),
		validation.Match(usernamePattern).Error("may only contain letters, digits and underscores"),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(8, maxPasswordBytes),
		validation.By(passwordFitsHash),
	}
}

// passwordFitsHash rejects passwords whose UTF-8 encoding bcrypt would refuse.
func passwordFitsHash(value any) error {
	if password, ok := value.(string); ok && len(password) > maxPasswordBytes {
		return errors.New("must be at most 72 bytes")
	}
	return nil
}

// ValidationFields flattens ozzo validation errors into field -> message.
func ValidationFields(err error) map[string]string {
	fields := map[string]string{}
	if errs, ok := err.(validation.Errors); ok {
		for field, fieldErr := range errs {
			if fieldErr != nil {
				fields[field] = fieldErr.Error()
			}
		}
	}
	return fields
}

// ValidationErrorsFor builds a single field validation error.
func ValidationErrorsFor(field string, err error) validation.Errors {
	return validation.Errors{field: err}
}

// InvalidPayload wraps a decoding failure as a validation error.
func InvalidPayload(err error) error {
	return validationError(err)
}

func validationError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(validation.Errors); !ok {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request payload").
			WithTextCode(TextCodeInvalidPayload).
			WithCode(goerrors.CodeBadRequest)
	}

	return goerrors.New("invalid request payload", goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidPayload).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": ValidationFields(err)})
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
