package accounts

import (
	"context"
	"errors"
	"strings"
)

// Register creates an unverified account and emails its verification code.
//
// When the email can not be delivered the account stays persisted and both
// the account and an ErrNotificationFailed class error are returned; the
// caller can recover through ResendVerificationCode.
func (s *Service) Register(ctx context.Context, msg RegisterAccountMessage) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(msg.Username)
	email := normalizeEmail(msg.Email)

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(msg.Password)
	if err != nil {
		return nil, err
	}

	phone, err := NormalizePhone(msg.Phone, msg.Country)
	if err != nil {
		return nil, validationError(ValidationErrorsFor("phone", err))
	}

	account := &Account{
		ID:                       s.newAccountID(email),
		Username:                 username,
		Email:                    email,
		Name:                     strings.TrimSpace(msg.Name),
		Country:                  strings.TrimSpace(msg.Country),
		Gender:                   Gender(strings.ToLower(strings.TrimSpace(msg.Gender))),
		Phone:                    phone,
		PasswordHash:             hash,
		Role:                     RoleUser,
		Status:                   StatusActive,
		CreatorApplicationStatus: ApplicationNone,
		EmailVerified:            false,
	}

	if msg.Avatar != nil {
		if err := s.checkAvatar(*msg.Avatar); err != nil {
			return nil, err
		}
	}

	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	account.SetVerificationCode(code)

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		return nil, err
	}

	// the upload waits for the insert so only the owner of the username
	// writes its avatar object
	if msg.Avatar != nil {
		if created, err = s.attachRegistrationAvatar(ctx, created, *msg.Avatar); err != nil {
			return nil, err
		}
	}

	s.logger.Info("account registered", "account", created.ID, "username", created.Username)
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor:     accountActor(created),
		AccountID: created.ID.String(),
		To:        string(created.Status),
	})

	if err := s.sendCode(ctx, NotificationEmailVerification, created, code); err != nil {
		return created, err
	}

	return created, nil
}

// attachRegistrationAvatar stores the avatar of a freshly created account.
// When the upload or the URL write fails the account is removed again, so the
// registration fails as a whole.
func (s *Service) attachRegistrationAvatar(ctx context.Context, account *Account, upload AvatarUpload) (*Account, error) {
	url, err := s.uploadAvatar(ctx, upload, account.Username)
	if err != nil {
		s.discardRegistration(ctx, account)
		return nil, err
	}

	next := account.Clone()
	next.AvatarURL = url

	updated, err := s.accounts.UpdateColumns(ctx, next, []string{ColumnAvatarURL})
	if err != nil {
		s.discardRegistration(ctx, account)
		return nil, err
	}
	return updated, nil
}

func (s *Service) discardRegistration(ctx context.Context, account *Account) {
	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		s.logger.Error("failed to discard registration", "account", account.ID, "error", err)
	}
}

// BootstrapAdmin creates a verified, active admin when username is unused.
// An existing account with that username is returned unchanged.
func (s *Service) BootstrapAdmin(ctx context.Context, msg BootstrapAdminMessage) (*Account, bool, error) {
	if err := msg.Validate(); err != nil {
		return nil, false, err
	}

	existing, err := s.accounts.GetByUsername(ctx, msg.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, false, err
	}

	hash, err := s.hashPassword(msg.Password)
	if err != nil {
		return nil, false, err
	}

	name := msg.Name
	if name == "" {
		name = msg.Username
	}

	account := &Account{
		ID:                       s.newAccountID(msg.Email),
		Username:                 strings.TrimSpace(msg.Username),
		Email:                    normalizeEmail(msg.Email),
		Name:                     name,
		Country:                  "--",
		Gender:                   GenderOther,
		PasswordHash:             hash,
		Role:                     RoleAdmin,
		Status:                   StatusActive,
		CreatorApplicationStatus: ApplicationNone,
		EmailVerified:            true,
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("admin account bootstrapped", "account", created.ID, "username", created.Username)
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventAdminBootstrapped,
		Actor:     SystemActor,
		AccountID: created.ID.String(),
		To:        string(RoleAdmin),
	})

	return created, true, nil
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}

	return nil
}
