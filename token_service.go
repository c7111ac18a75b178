package accounts

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	// DefaultAccessTokenTTL is the lifetime of access tokens.
	DefaultAccessTokenTTL = 30 * time.Minute
	// DefaultRefreshTokenTTL is the lifetime of refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
	TokenType        string    `json:"token_type"`
}

// TokenService issues and verifies access and refresh tokens
type TokenService interface {
	IssueAccess(identity Identity) (string, time.Time, error)
	IssueRefresh(identity Identity) (string, time.Time, error)
	IssuePair(identity Identity) (TokenPair, error)
	VerifyAccess(token string) (*JWTClaims, error)
	VerifyRefresh(token string) (*JWTClaims, error)
	Rotate(refreshToken string) (TokenPair, *JWTClaims, error)
}

// TokenOptions configures NewTokenService.
type TokenOptions struct {
	AccessSigningKey  []byte
	RefreshSigningKey []byte
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	Issuer            string
	Audience          []string
	// Now overrides the clock used to stamp and verify tokens.
	Now func() time.Time
}

// TokenOptionsFromConfig maps a Config into TokenOptions.
func TokenOptionsFromConfig(cfg Config) TokenOptions {
	return TokenOptions{
		AccessSigningKey:  []byte(cfg.GetAccessSigningKey()),
		RefreshSigningKey: []byte(cfg.GetRefreshSigningKey()),
		AccessTTL:         cfg.GetAccessTokenTTL(),
		RefreshTTL:        cfg.GetRefreshTokenTTL(),
		Issuer:            cfg.GetIssuer(),
		Audience:          cfg.GetAudience(),
	}
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	now        func() time.Time
	logger     Logger
}

// NewTokenService creates a new TokenService instance. Both keys are required
// and must differ.
func NewTokenService(opts TokenOptions, logger Logger) (*TokenServiceImpl, error) {
	if len(opts.AccessSigningKey) == 0 || len(opts.RefreshSigningKey) == 0 {
		return nil, ErrInvalidTokenSecrets
	}
	if string(opts.AccessSigningKey) == string(opts.RefreshSigningKey) {
		return nil, ErrInvalidTokenSecrets
	}

	ts := &TokenServiceImpl{
		accessKey:  opts.AccessSigningKey,
		refreshKey: opts.RefreshSigningKey,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		issuer:     opts.Issuer,
		now:        opts.Now,
		logger:     normalizeLogger(logger),
	}

	if ts.accessTTL <= 0 {
		ts.accessTTL = DefaultAccessTokenTTL
	}
	if ts.refreshTTL <= 0 {
		ts.refreshTTL = DefaultRefreshTokenTTL
	}
	if ts.now == nil {
		ts.now = time.Now
	}
	if len(opts.Audience) > 0 {
		ts.audience = append(jwt.ClaimStrings(nil), opts.Audience...)
	}

	return ts, nil
}

// NewTokenServiceFromConfig builds a TokenService from Config.
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	return NewTokenService(TokenOptionsFromConfig(cfg), logger)
}

// IssueAccess signs a short lived access token
func (ts *TokenServiceImpl) IssueAccess(identity Identity) (string, time.Time, error) {
	return ts.issue(identity, TokenTypeAccess, ts.accessKey, ts.accessTTL)
}

// IssueRefresh signs a long lived refresh token
func (ts *TokenServiceImpl) IssueRefresh(identity Identity) (string, time.Time, error) {
	return ts.issue(identity, TokenTypeRefresh, ts.refreshKey, ts.refreshTTL)
}

// IssuePair signs an access and a refresh token for identity
func (ts *TokenServiceImpl) IssuePair(identity Identity) (TokenPair, error) {
	access, accessExp, err := ts.IssueAccess(identity)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, refreshExp, err := ts.IssueRefresh(identity)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		TokenType:        "bearer",
	}, nil
}

// VerifyAccess validates an access token
func (ts *TokenServiceImpl) VerifyAccess(token string) (*JWTClaims, error) {
	return ts.verify(token, TokenTypeAccess, ts.accessKey)
}

// VerifyRefresh validates a refresh token
func (ts *TokenServiceImpl) VerifyRefresh(token string) (*JWTClaims, error) {
	return ts.verify(token, TokenTypeRefresh, ts.refreshKey)
}

// Rotate verifies a refresh token and issues a fresh pair from its claims
func (ts *TokenServiceImpl) Rotate(refreshToken string) (TokenPair, *JWTClaims, error) {
	claims, err := ts.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, nil, err
	}

	pair, err := ts.IssuePair(claims.Identity())
	if err != nil {
		return TokenPair{}, nil, err
	}

	return pair, claims, nil
}

func (ts *TokenServiceImpl) issue(identity Identity, typ TokenType, key []byte, ttl time.Duration) (string, time.Time, error) {
	if identity == nil || identity.ID() == "" {
		return "", time.Time{}, errors.New("identity is required", errors.CategoryBadInput)
	}

	now := ts.now()
	expiresAt := now.Add(ttl)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:       identity.ID(),
		Name:      identity.Username(),
		UserRole:  identity.Role(),
		TokenType: typ,
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, expiresAt, nil
}

func (ts *TokenServiceImpl) verify(tokenString string, typ TokenType, key []byte) (*JWTClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)
	if err != nil {
		ts.logger.Debug("token verification failed", "type", typ, "error", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if !ts.audienceAccepted(claims.Audience) {
		ts.logger.Debug("token audience mismatch", "expected", ts.audience, "got", claims.Audience)
		return nil, ErrInvalidToken
	}

	if claims.TokenType != typ {
		ts.logger.Debug("token type mismatch", "expected", typ, "got", claims.TokenType)
		return nil, ErrInvalidToken
	}

	if claims.UserID() == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// audienceAccepted reports whether aud names one of the configured audiences.
// Without configured audiences every token is accepted.
func (ts *TokenServiceImpl) audienceAccepted(aud jwt.ClaimStrings) bool {
	if len(ts.audience) == 0 {
		return true
	}
	for _, want := range ts.audience {
		if slices.Contains(aud, want) {
			return true
		}
	}
	return false
}
