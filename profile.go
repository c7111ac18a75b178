package accounts

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ProfileUpdate lists the self-service fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name    *string `json:"name,omitempty"`
	Country *string `json:"country,omitempty"`
	Gender  *string `json:"gender,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

func (p ProfileUpdate) Type() string { return "account.profile.update" }

// IsEmpty reports whether no field is set.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Country == nil && p.Gender == nil && p.Phone == nil
}

// Validate will run validation rules on the fields that are present
func (p ProfileUpdate) Validate() error {
	country := ""
	if p.Country != nil {
		country = *p.Country
	}

	return validationError(validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.Length(2, 50)),
		validation.Field(&p.Country, validation.NilOrNotEmpty, validation.Length(2, 50)),
		validation.Field(&p.Gender, validation.NilOrNotEmpty, validation.In(genderValues...)),
		validation.Field(&p.Phone, validation.By(func(value any) error {
			// national numbers without a country are checked by Apply
			// against the stored country
			if p.Phone == nil || (country == "" && !strings.HasPrefix(strings.TrimSpace(*p.Phone), "+")) {
				return nil
			}
			return ValidatePhone(country)(*p.Phone)
		})),
	))
}

// Apply merges the present fields into account and reports whether anything
// changed. Phone numbers are stored in E.164; an empty phone clears it.
func (p ProfileUpdate) Apply(account *Account) (bool, error) {
	changed := false

	if p.Name != nil && *p.Name != account.Name {
		account.Name = *p.Name
		changed = true
	}

	if p.Country != nil && *p.Country != account.Country {
		account.Country = *p.Country
		changed = true
	}

	if p.Gender != nil && Gender(*p.Gender) != account.Gender {
		g := Gender(*p.Gender)
		if !g.IsValid() {
			return false, validationError(validation.Errors{"gender": errors.New("must be a valid value")})
		}
		account.Gender = g
		changed = true
	}

	if p.Phone != nil {
		phone, err := NormalizePhone(*p.Phone, account.Country)
		if err != nil {
			return false, validationError(validation.Errors{"phone": err})
		}
		if phone != account.Phone {
			account.Phone = phone
			changed = true
		}
	}

	return changed, nil
}
