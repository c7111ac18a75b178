package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/goliatone/hashid/pkg/hashid"
)

// Service orchestrates registration, verification, login, password and
// admin flows over the account store.
type Service struct {
	accounts            Accounts
	tokens              TokenService
	hasher              PasswordAuthenticator
	otp                 OTPGenerator
	otpTTL              time.Duration
	mailer              *Mailer
	avatars             AvatarStore
	machine             AccountStateMachine
	activitySink        ActivitySink
	logger              Logger
	now                 func() time.Time
	statelessRefresh    bool
	concealUnknownEmail bool
	useHashid           bool
}

// ServiceOption customizes the Service.
type ServiceOption func(*Service)

// WithPasswordHasher overrides the bcrypt hasher.
func WithPasswordHasher(h PasswordAuthenticator) ServiceOption {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithOTPGenerator overrides the one time code source.
func WithOTPGenerator(g OTPGenerator) ServiceOption {
	return func(s *Service) {
		if g != nil {
			s.otp = g
		}
	}
}

// WithOTPTTL overrides how long codes remain valid.
func WithOTPTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.otpTTL = ttl
		}
	}
}

// WithMailer sets the mailer used for verification and reset codes.
func WithMailer(m *Mailer) ServiceOption {
	return func(s *Service) {
		s.mailer = m
	}
}

// WithAvatarStore enables avatar uploads.
func WithAvatarStore(store AvatarStore) ServiceOption {
	return func(s *Service) {
		s.avatars = store
	}
}

// WithStateMachine overrides the account state machine.
func WithStateMachine(sm AccountStateMachine) ServiceOption {
	return func(s *Service) {
		if sm != nil {
			s.machine = sm
		}
	}
}

// WithActivitySink sets the audit sink.
func WithActivitySink(sink ActivitySink) ServiceOption {
	return func(s *Service) {
		s.activitySink = normalizeActivitySink(sink)
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		s.logger = normalizeLogger(logger)
	}
}

// WithClock overrides the clock used for code expiry.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStatelessRefresh issues refreshed tokens from the refresh claims alone,
// without checking the account store.
func WithStatelessRefresh(enabled bool) ServiceOption {
	return func(s *Service) {
		s.statelessRefresh = enabled
	}
}

// WithConcealedPasswordReset makes forgot password succeed for unknown emails.
func WithConcealedPasswordReset(enabled bool) ServiceOption {
	return func(s *Service) {
		s.concealUnknownEmail = enabled
	}
}

// WithHashidIdentifiers derives account IDs from the email address.
func WithHashidIdentifiers(enabled bool) ServiceOption {
	return func(s *Service) {
		s.useHashid = enabled
	}
}

// NewService wires the orchestrator. Unless overridden the state machine
// shares the Service clock, logger and activity sink.
func NewService(accounts Accounts, tokens TokenService, opts ...ServiceOption) *Service {
	s := &Service{
		accounts:     accounts,
		tokens:       tokens,
		hasher:       NewBcryptHasher(),
		otp:          NewOTPGenerator(),
		otpTTL:       DefaultOTPTTL,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.machine == nil {
		s.machine = NewAccountStateMachine(accounts,
			WithStateMachineClock(s.now),
			WithStateMachineActivitySink(s.activitySink),
			WithStateMachineLogger(s.logger),
		)
	}

	return s
}

// StateMachine exposes the state machine for callers attaching hooks.
func (s *Service) StateMachine() AccountStateMachine {
	return s.machine
}

func (s *Service) newCode() (OneTimeCode, error) {
	code, err := NewOneTimeCode(s.otp, s.now(), s.otpTTL)
	if err != nil {
		return OneTimeCode{}, internalError(err, "failed to generate one time code")
	}
	return code, nil
}

func (s *Service) newAccountID(email string) uuid.UUID {
	if s.useHashid {
		if id, err := hashid.NewUUID(normalizeEmail(email)); err == nil {
			return id
		}
		s.logger.Warn("hashid generation failed, using random id", "email", email)
	}
	return uuid.New()
}

func (s *Service) record(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, s.activitySink, s.logger, s.now, event)
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		if _, ok := AsRichError(err); ok {
			return "", err
		}
		return "", internalError(err, "failed to hash password")
	}
	return hash, nil
}

// notifyFailure records a dispatch failure and returns err unchanged.
func (s *Service) notifyFailure(ctx context.Context, account *Account, kind NotificationKind, err error) error {
	s.logger.Error("notification dispatch failed", "kind", kind, "account", account.ID, "error", err)
	s.record(ctx, ActivityEvent{
		EventType: ActivityEventNotificationFailure,
		Actor:     SystemActor,
		AccountID: account.ID.String(),
		Metadata:  map[string]any{"kind": string(kind)},
	})
	return err
}

func (s *Service) sendCode(ctx context.Context, kind NotificationKind, account *Account, code OneTimeCode) error {
	if s.mailer == nil {
		return s.notifyFailure(ctx, account, kind, withCause(ErrNotificationFailed, nil, map[string]any{"kind": string(kind), "reason": "mailer not configured"}))
	}

	var err error
	switch kind {
	case NotificationEmailVerification:
		err = s.mailer.SendVerificationCode(ctx, account, code)
	case NotificationPasswordReset:
		err = s.mailer.SendPasswordResetCode(ctx, account, code)
	}
	if err != nil {
		return s.notifyFailure(ctx, account, kind, err)
	}
	return nil
}

func accountActor(account *Account) ActorRef {
	return ActorRef{ID: account.ID.String(), Type: ActorTypeAccount}
}
