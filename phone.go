package accounts

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

// ValidatePhone accepts empty values, international numbers, and national
// numbers when country is an ISO 3166 alpha-2 region.
func ValidatePhone(country string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := NormalizePhone(s, country); err != nil {
			return err
		}
		return nil
	}
}

// NormalizePhone parses raw and returns it in E.164 format.
func NormalizePhone(raw, country string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, phoneRegion(country))
	if err != nil {
		return "", errors.New("must be a valid phone number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("must be a valid phone number")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func phoneRegion(country string) string {
	c := strings.ToUpper(strings.TrimSpace(country))
	if len(c) == 2 {
		return c
	}
	return ""
}
