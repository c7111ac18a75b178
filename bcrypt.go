package accounts

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// dummyHash is compared against when the account does not exist so unknown
// identifiers cost the same as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("accounts-dummy-password"), passwordHashCost())

// BcryptHasher implements PasswordAuthenticator with bcrypt.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using the build's default cost.
func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: passwordHashCost()}
}

// HashPassword will generate a password hash
func (h BcryptHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	cost := h.Cost
	if cost == 0 {
		cost = passwordHashCost()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", internalError(err, "failed to hash password")
	}
	return string(hash), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// HashPassword hashes with the default hasher.
func HashPassword(password string) (string, error) {
	return NewBcryptHasher().HashPassword(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return withCause(ErrMismatchedHashAndPassword, err, nil)
	}
	return nil
}

// burnCompare spends one bcrypt comparison without a result.
func burnCompare(hasher PasswordAuthenticator, password string) {
	_ = hasher.ComparePasswordAndHash(password, string(dummyHash))
}
