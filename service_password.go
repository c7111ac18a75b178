package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ForgotPassword stores a reset code for the account owning email and emails
// it. Unknown emails return ErrAccountNotFound unless concealment is enabled,
// in which case they succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) && s.concealUnknownEmail {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}

	next := account.Clone()
	next.SetResetCode(code)

	updated, err := s.accounts.UpdateColumns(ctx, next, []string{ColumnResetOTP, ColumnResetOTPExpiry})
	if err != nil {
		return err
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		Actor:     accountActor(updated),
		AccountID: updated.ID.String(),
	})

	return s.sendCode(ctx, NotificationPasswordReset, updated, code)
}

// ResetPassword replaces the password when code matches the pending, unexpired
// reset code. An unknown email fails with ErrNoPendingReset. The code is consumed atomically so concurrent submissions of the
// same code succeed at most once.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		// unknown emails look the same as accounts without a pending reset
		if errors.Is(err, ErrAccountNotFound) {
			return ErrNoPendingReset
		}
		return err
	}

	pending, ok := account.ResetCode()
	if !ok {
		return ErrNoPendingReset
	}

	if err := pending.Check(code, s.now()); err != nil {
		return err
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	next := account.Clone()
	next.PasswordHash = hash
	next.ClearResetCode()

	if _, err := s.accounts.UpdateColumns(ctx, next,
		[]string{ColumnPasswordHash, ColumnResetOTP, ColumnResetOTPExpiry},
		GuardColumn(ColumnResetOTP, pending.Code),
	); err != nil {
		if errors.Is(err, ErrStaleState) {
			return ErrInvalidOTP
		}
		return err
	}

	s.logger.Info("password reset", "account", account.ID)
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor:     accountActor(account),
		AccountID: account.ID.String(),
	})

	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.hasher.ComparePasswordAndHash(oldPassword, account.PasswordHash); err != nil {
		return ErrWrongPassword
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	next := account.Clone()
	next.PasswordHash = hash

	if _, err := s.accounts.UpdateColumns(ctx, next,
		[]string{ColumnPasswordHash},
		GuardColumn(ColumnPasswordHash, account.PasswordHash),
	); err != nil {
		if errors.Is(err, ErrStaleState) {
			return ErrWrongPassword
		}
		return err
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor:     accountActor(account),
		AccountID: account.ID.String(),
	})

	return nil
}
