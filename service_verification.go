package accounts

import (
	"context"
	"errors"
)

// VerifyEmail marks the account verified when code matches the pending,
// unexpired verification code. The code is single use.
func (s *Service) VerifyEmail(ctx context.Context, username, code string) (*Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if account.EmailVerified {
		return nil, ErrEmailAlreadyVerified
	}

	pending, ok := account.VerificationCode()
	if !ok {
		return nil, ErrNoPendingOTP
	}

	if err := pending.Check(code, s.now()); err != nil {
		return nil, err
	}

	next := account.Clone()
	next.EmailVerified = true
	next.ClearVerificationCode()

	updated, err := s.accounts.UpdateColumns(ctx, next,
		[]string{ColumnEmailVerified, ColumnOTPCode, ColumnOTPExpiry},
		GuardColumn(ColumnOTPCode, pending.Code),
	)
	if err != nil {
		if errors.Is(err, ErrStaleState) {
			// another request consumed or replaced the code first
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	s.logger.Info("email verified", "account", updated.ID)
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor:     accountActor(updated),
		AccountID: updated.ID.String(),
	})

	return updated, nil
}

// ResendVerificationCode replaces the pending code and emails it again.
func (s *Service) ResendVerificationCode(ctx context.Context, username string) (*Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if account.EmailVerified {
		return nil, ErrEmailAlreadyVerified
	}

	code, err := s.newCode()
	if err != nil {
		return nil, err
	}

	next := account.Clone()
	next.SetVerificationCode(code)

	updated, err := s.accounts.UpdateColumns(ctx, next,
		[]string{ColumnOTPCode, ColumnOTPExpiry},
		GuardColumn(ColumnEmailVerified, false),
	)
	if err != nil {
		if errors.Is(err, ErrStaleState) {
			return nil, ErrEmailAlreadyVerified
		}
		return nil, err
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventVerificationResent,
		Actor:     accountActor(updated),
		AccountID: updated.ID.String(),
	})

	if err := s.sendCode(ctx, NotificationEmailVerification, updated, code); err != nil {
		return updated, err
	}

	return updated, nil
}
