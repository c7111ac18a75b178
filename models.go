package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model
type Account struct {
	bun.BaseModel            `bun:"table:accounts,alias:acct"`
	ID                       uuid.UUID         `bun:"id,pk,type:uuid" json:"id"`
	Username                 string            `bun:"username,notnull,unique" json:"username"`
	Email                    string            `bun:"email,notnull,unique" json:"email"`
	Name                     string            `bun:"name,notnull" json:"name"`
	Country                  string            `bun:"country,notnull" json:"country"`
	Gender                   Gender            `bun:"gender,notnull" json:"gender"`
	Phone                    string            `bun:"phone,nullzero" json:"phone,omitempty"`
	AvatarURL                string            `bun:"profile_photo_url,nullzero" json:"profile_photo_url,omitempty"`
	PasswordHash             string            `bun:"password_hash,notnull" json:"-"`
	Role                     Role              `bun:"role,notnull" json:"role"`
	CreatorApplicationStatus ApplicationStatus `bun:"creator_application_status,notnull" json:"creator_application_status"`
	Status                   AccountStatus     `bun:"status,notnull" json:"status"`
	EmailVerified            bool              `bun:"email_verified,notnull" json:"email_verified"`
	OTPCode                  string            `bun:"otp_code,nullzero" json:"-"`
	OTPExpiry                *time.Time        `bun:"otp_expiry,nullzero" json:"-"`
	ResetOTP                 string            `bun:"reset_otp,nullzero" json:"-"`
	ResetOTPExpiry           *time.Time        `bun:"reset_otp_expiry,nullzero" json:"-"`
	LastLogin                *time.Time        `bun:"last_login,nullzero" json:"last_login,omitempty"`
	CreatedAt                time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt                time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

// Column names used by UpdateColumns and UpdateGuard.
const (
	ColumnName                     = "name"
	ColumnCountry                  = "country"
	ColumnGender                   = "gender"
	ColumnPhone                    = "phone"
	ColumnAvatarURL                = "profile_photo_url"
	ColumnOTPCode                  = "otp_code"
	ColumnOTPExpiry                = "otp_expiry"
	ColumnResetOTP                 = "reset_otp"
	ColumnResetOTPExpiry           = "reset_otp_expiry"
	ColumnPasswordHash             = "password_hash"
	ColumnRole                     = "role"
	ColumnStatus                   = "status"
	ColumnCreatorApplicationStatus = "creator_application_status"
	ColumnEmailVerified            = "email_verified"
)

// EnsureDefaults fills the lifecycle fields of a freshly built account.
func (a *Account) EnsureDefaults() {
	if a.Role == "" {
		a.Role = RoleUser
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if a.CreatorApplicationStatus == "" {
		a.CreatorApplicationStatus = ApplicationNone
	}
}

// VerificationCode returns the pending email verification code. ok is false
// unless both the code and its expiry are present.
func (a *Account) VerificationCode() (OneTimeCode, bool) {
	return pairedCode(a.OTPCode, a.OTPExpiry)
}

// SetVerificationCode stores code and expiry together.
func (a *Account) SetVerificationCode(code OneTimeCode) {
	expiry := code.ExpiresAt
	a.OTPCode = code.Code
	a.OTPExpiry = &expiry
}

// ClearVerificationCode removes code and expiry together.
func (a *Account) ClearVerificationCode() {
	a.OTPCode = ""
	a.OTPExpiry = nil
}

// ResetCode returns the pending password reset code.
func (a *Account) ResetCode() (OneTimeCode, bool) {
	return pairedCode(a.ResetOTP, a.ResetOTPExpiry)
}

// SetResetCode stores the reset code and expiry together.
func (a *Account) SetResetCode(code OneTimeCode) {
	expiry := code.ExpiresAt
	a.ResetOTP = code.Code
	a.ResetOTPExpiry = &expiry
}

// ClearResetCode removes the reset code and expiry together.
func (a *Account) ClearResetCode() {
	a.ResetOTP = ""
	a.ResetOTPExpiry = nil
}

// Clone returns a shallow copy safe to mutate before persisting.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.OTPExpiry = copyTime(a.OTPExpiry)
	c.ResetOTPExpiry = copyTime(a.ResetOTPExpiry)
	c.LastLogin = copyTime(a.LastLogin)
	return &c
}

func pairedCode(code string, expiry *time.Time) (OneTimeCode, bool) {
	if code == "" || expiry == nil {
		return OneTimeCode{}, false
	}
	return OneTimeCode{Code: code, ExpiresAt: *expiry}, true
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// PublicProfile is the projection visible to any caller.
type PublicProfile struct {
	Username                 string            `json:"username"`
	Name                     string            `json:"name"`
	Country                  string            `json:"country"`
	Gender                   Gender            `json:"gender"`
	AvatarURL                string            `json:"profile_photo_url,omitempty"`
	Role                     Role              `json:"role"`
	CreatorApplicationStatus ApplicationStatus `json:"creator_application_status"`
	Status                   AccountStatus     `json:"status"`
}

// AccountDetail is the projection returned to the owner and admins.
type AccountDetail struct {
	PublicProfile
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewPublicProfile projects an account into its public view.
func NewPublicProfile(a *Account) PublicProfile {
	return PublicProfile{
		Username:                 a.Username,
		Name:                     a.Name,
		Country:                  a.Country,
		Gender:                   a.Gender,
		AvatarURL:                a.AvatarURL,
		Role:                     a.Role,
		CreatorApplicationStatus: a.CreatorApplicationStatus,
		Status:                   a.Status,
	}
}

// NewAccountDetail projects an account into its owner view.
func NewAccountDetail(a *Account) AccountDetail {
	return AccountDetail{
		PublicProfile: NewPublicProfile(a),
		ID:            a.ID.String(),
		Email:         a.Email,
		Phone:         a.Phone,
		EmailVerified: a.EmailVerified,
		LastLogin:     a.LastLogin,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// NewAccountDetails projects a list of accounts.
func NewAccountDetails(records []*Account) []AccountDetail {
	out := make([]AccountDetail, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		out = append(out, NewAccountDetail(r))
	}
	return out
}
