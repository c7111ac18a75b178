package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType discriminates access from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// AuthClaims is the read side of verified token claims
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
	Role() Role
	Type() TokenType
	HasRole(role Role) bool
	IsAtLeast(minRole Role) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string    `json:"uid,omitempty"`
	Name      string    `json:"username,omitempty"`
	UserRole  Role      `json:"role,omitempty"`
	TokenType TokenType `json:"type"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Username returns the username claim
func (c *JWTClaims) Username() string {
	return c.Name
}

// Role returns the global role
func (c *JWTClaims) Role() Role {
	return c.UserRole
}

// Type returns the token class
func (c *JWTClaims) Type() TokenType {
	return c.TokenType
}

// HasRole checks if the token carries exactly role
func (c *JWTClaims) HasRole(role Role) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the token role is at least the minimum required role
func (c *JWTClaims) IsAtLeast(minRole Role) bool {
	return c.UserRole.IsAtLeast(minRole)
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Identity returns the claims as an Identity for re-issuing tokens.
func (c *JWTClaims) Identity() Identity {
	return claimsIdentity{claims: c}
}

type claimsIdentity struct {
	claims *JWTClaims
}

func (i claimsIdentity) ID() string       { return i.claims.UserID() }
func (i claimsIdentity) Username() string { return i.claims.Username() }
func (i claimsIdentity) Email() string    { return "" }
func (i claimsIdentity) Role() Role       { return i.claims.Role() }

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
