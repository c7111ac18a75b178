package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// LoginResult is returned on successful login.
type LoginResult struct {
	Account *Account
	Tokens  TokenPair
}

// TokenIdentity is the verified identity behind an access token.
type TokenIdentity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// Login authenticates by username or email. Unknown identifiers and wrong
// passwords fail with the same error.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		burnCompare(s.hasher, password)
		s.recordLoginFailure(ctx, "", identifier, "unknown_identifier")
		return nil, ErrMismatchedHashAndPassword
	}

	if err := s.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.recordLoginFailure(ctx, account.ID.String(), identifier, "password_mismatch")
		return nil, ErrMismatchedHashAndPassword
	}

	if !account.EmailVerified {
		s.recordLoginFailure(ctx, account.ID.String(), identifier, "email_not_verified")
		return nil, ErrEmailNotVerified
	}

	if !account.Status.CanLogin() {
		s.recordLoginFailure(ctx, account.ID.String(), identifier, "status_"+string(account.Status))
		return nil, ErrAccountInactive(account.Status)
	}

	if err := s.accounts.TrackSuccessfulLogin(ctx, account); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.IssuePair(NewIdentityFromAccount(account))
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded", "account", account.ID)
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     accountActor(account),
		AccountID: account.ID.String(),
	})

	return &LoginResult{Account: account, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. Unless stateless refresh
// is enabled the account must still exist, be verified and be active, and the
// new tokens carry its current role.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, ErrMissingToken
	}

	if s.statelessRefresh {
		pair, claims, err := s.tokens.Rotate(refreshToken)
		if err != nil {
			return TokenPair{}, err
		}
		s.recordRefresh(ctx, claims.UserID())
		return pair, nil
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	account, err := s.accountFromClaims(ctx, claims)
	if err != nil {
		return TokenPair{}, err
	}

	if !account.EmailVerified || !account.Status.CanLogin() {
		s.logger.Debug("refresh rejected for inactive account", "account", account.ID, "status", account.Status)
		return TokenPair{}, ErrInvalidToken
	}

	pair, err := s.tokens.IssuePair(NewIdentityFromAccount(account))
	if err != nil {
		return TokenPair{}, err
	}

	s.recordRefresh(ctx, account.ID.String())
	return pair, nil
}

// ValidateAccessToken verifies token and checks that its role still matches
// the stored account.
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (TokenIdentity, error) {
	if token == "" {
		return TokenIdentity{}, ErrMissingToken
	}

	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		return TokenIdentity{}, err
	}

	account, err := s.accountFromClaims(ctx, claims)
	if err != nil {
		return TokenIdentity{}, err
	}

	if account.Role != claims.Role() {
		return TokenIdentity{}, ErrTokenRoleMismatch
	}

	return TokenIdentity{UserID: account.ID.String(), Role: account.Role}, nil
}

func (s *Service) accountFromClaims(ctx context.Context, claims AuthClaims) (*Account, error) {
	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrInvalidToken
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return account, nil
}

func (s *Service) recordLoginFailure(ctx context.Context, accountID, identifier, reason string) {
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{ID: identifier, Type: ActorTypeAccount},
		AccountID: accountID,
		Metadata: map[string]any{
			"identifier": identifier,
			"reason":     reason,
		},
	})
}

func (s *Service) recordRefresh(ctx context.Context, accountID string) {
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventTokenRefreshed,
		Actor:     ActorRef{ID: accountID, Type: ActorTypeAccount},
		AccountID: accountID,
	})
}
