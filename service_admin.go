package accounts

import (
	"context"

	"github.com/google/uuid"
)

// ApplyCreator files a creator application for the account behind id.
func (s *Service) ApplyCreator(ctx context.Context, id uuid.UUID) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.machine.ApplyCreator(ctx, accountActor(account), account)
}

// ListCreatorApplications returns accounts with a pending application,
// oldest first.
func (s *Service) ListCreatorApplications(ctx context.Context) ([]*Account, error) {
	return s.accounts.ListPendingCreatorApplications(ctx)
}

// ListAccounts returns every account ordered by creation time.
func (s *Service) ListAccounts(ctx context.Context) ([]*Account, error) {
	return s.accounts.List(ctx)
}

// ApproveCreator approves the pending application of username and grants
// the creator role.
func (s *Service) ApproveCreator(ctx context.Context, admin ActorRef, username string, opts ...TransitionOption) (*Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.machine.ApproveCreator(ctx, admin, account, opts...)
}

// RejectCreator closes the pending application of username.
func (s *Service) RejectCreator(ctx context.Context, admin ActorRef, username string, opts ...TransitionOption) (*Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.machine.RejectCreator(ctx, admin, account, opts...)
}

// AssignRole sets the role of username. role must name one of the known roles.
func (s *Service) AssignRole(ctx context.Context, admin ActorRef, username, role string, opts ...TransitionOption) (*Account, error) {
	target, err := ParseRole(role)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.machine.AssignRole(ctx, admin, account, target, opts...)
}

// Suspend blocks login for username until reactivated.
func (s *Service) Suspend(ctx context.Context, admin ActorRef, username string, opts ...TransitionOption) (*Account, error) {
	return s.setStatus(ctx, admin, username, StatusSuspended, opts...)
}

// Reactivate restores login for username.
func (s *Service) Reactivate(ctx context.Context, admin ActorRef, username string, opts ...TransitionOption) (*Account, error) {
	return s.setStatus(ctx, admin, username, StatusActive, opts...)
}

// Block blocks login for username.
func (s *Service) Block(ctx context.Context, admin ActorRef, username string, opts ...TransitionOption) (*Account, error) {
	return s.setStatus(ctx, admin, username, StatusBlocked, opts...)
}

func (s *Service) setStatus(ctx context.Context, admin ActorRef, username string, status AccountStatus, opts ...TransitionOption) (*Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	updated, err := s.machine.SetStatus(ctx, admin, account, status, opts...)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account status changed", "account", updated.ID, "from", account.Status, "to", updated.Status, "actor", admin.ID)
	return updated, nil
}

// AdminActor builds the actor reference for an authenticated admin.
func AdminActor(claims AuthClaims) ActorRef {
	if claims == nil {
		return SystemActor
	}
	return ActorRef{ID: claims.UserID(), Type: ActorTypeAdmin}
}
