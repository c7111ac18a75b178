package accounts

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// DefaultOTPDigits is the length of generated one time codes.
const DefaultOTPDigits = 6

// DefaultOTPTTL is how long a verification or reset code stays valid.
const DefaultOTPTTL = 10 * time.Minute

// OTPGenerator produces one time codes.
type OTPGenerator interface {
	Generate() (string, error)
}

// OTPGeneratorFunc adapts a function to the OTPGenerator interface.
type OTPGeneratorFunc func() (string, error)

// Generate implements OTPGenerator.
func (f OTPGeneratorFunc) Generate() (string, error) {
	return f()
}

// NumericOTPGenerator draws zero padded decimal codes from crypto/rand.
type NumericOTPGenerator struct {
	Digits int
}

// NewOTPGenerator returns a six digit generator.
func NewOTPGenerator() NumericOTPGenerator {
	return NumericOTPGenerator{Digits: DefaultOTPDigits}
}

// Generate implements OTPGenerator.
func (g NumericOTPGenerator) Generate() (string, error) {
	digits := g.Digits
	if digits <= 0 {
		digits = DefaultOTPDigits
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

// OneTimeCode pairs a code with its absolute expiry.
type OneTimeCode struct {
	Code      string
	ExpiresAt time.Time
}

// NewOneTimeCode draws a code from gen that expires ttl after now.
func NewOneTimeCode(gen OTPGenerator, now time.Time, ttl time.Duration) (OneTimeCode, error) {
	code, err := gen.Generate()
	if err != nil {
		return OneTimeCode{}, err
	}
	return OneTimeCode{Code: code, ExpiresAt: now.Add(ttl)}, nil
}

// ValidAt reports whether now is strictly before the expiry.
func (o OneTimeCode) ValidAt(now time.Time) bool {
	return now.Before(o.ExpiresAt)
}

// Matches compares the presented code in constant time.
func (o OneTimeCode) Matches(code string) bool {
	if o.Code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(o.Code), []byte(code)) == 1
}

// Check validates a presented code against o at now.
func (o OneTimeCode) Check(code string, now time.Time) error {
	if !o.Matches(code) {
		return ErrInvalidOTP
	}
	if !o.ValidAt(now) {
		return ErrOTPExpired
	}
	return nil
}
