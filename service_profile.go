package accounts

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Profile returns the account behind id.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// PublicProfile returns the public projection of the account named username.
func (s *Service) PublicProfile(ctx context.Context, username string) (PublicProfile, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return PublicProfile{}, err
	}
	return NewPublicProfile(account), nil
}

// UpdateProfile merges the present fields of update into the account. An
// update that changes nothing returns the stored account without a write.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*Account, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := account.Clone()
	changed, err := update.Apply(next)
	if err != nil {
		return nil, err
	}
	if !changed {
		return account, nil
	}

	updated, err := s.accounts.UpdateColumns(ctx, next,
		[]string{ColumnName, ColumnCountry, ColumnGender, ColumnPhone},
	)
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		Actor:     accountActor(updated),
		AccountID: updated.ID.String(),
	})

	return updated, nil
}

// UpdateAvatar uploads a new profile picture and stores its URL.
func (s *Service) UpdateAvatar(ctx context.Context, id uuid.UUID, upload AvatarUpload) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.uploadAvatar(ctx, upload, account.Username)
	if err != nil {
		return nil, err
	}

	next := account.Clone()
	next.AvatarURL = url

	updated, err := s.accounts.UpdateColumns(ctx, next, []string{ColumnAvatarURL})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventAvatarUpdated,
		Actor:     accountActor(updated),
		AccountID: updated.ID.String(),
		From:      account.AvatarURL,
		To:        url,
	})

	return updated, nil
}

func (s *Service) checkAvatar(upload AvatarUpload) error {
	if upload.Reader == nil || upload.Size == 0 {
		return withCause(ErrAvatarInvalid, nil, map[string]any{"reason": "empty file"})
	}

	if !strings.HasPrefix(strings.ToLower(upload.ContentType), "image/") {
		return withCause(ErrAvatarInvalid, nil, map[string]any{"content_type": upload.ContentType})
	}
	return nil
}

func (s *Service) uploadAvatar(ctx context.Context, upload AvatarUpload, username string) (string, error) {
	if err := s.checkAvatar(upload); err != nil {
		return "", err
	}

	if s.avatars == nil {
		return "", withCause(ErrAvatarUploadFailed, nil, map[string]any{"reason": "avatar store not configured"})
	}

	url, err := s.avatars.Upload(ctx, upload, username)
	if err != nil {
		s.logger.Error("avatar upload failed", "username", username, "error", err)
		return "", withCause(ErrAvatarUploadFailed, err, map[string]any{"username": username})
	}

	return url, nil
}
