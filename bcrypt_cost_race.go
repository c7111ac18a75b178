//go:build race

package accounts

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// race builds run far slower; keep suites within their timeouts.
	return bcrypt.MinCost
}
