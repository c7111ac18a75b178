package accounts

import (
	"context"
	"time"
)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

const (
	ActorTypeAccount = "account"
	ActorTypeAdmin   = "admin"
	ActorTypeSystem  = "system"
)

// SystemActor is used for transitions not triggered by a request.
var SystemActor = ActorRef{ID: "system", Type: ActorTypeSystem}

// TransitionKind names the axis a transition changes.
type TransitionKind string

const (
	TransitionApplyCreator   TransitionKind = "apply_creator"
	TransitionApproveCreator TransitionKind = "approve_creator"
	TransitionRejectCreator  TransitionKind = "reject_creator"
	TransitionAssignRole     TransitionKind = "assign_role"
	TransitionSetStatus      TransitionKind = "set_status"
)

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Kind    TransitionKind
	Actor   ActorRef
	Account *Account
	From    string
	To      string
	Meta    TransitionMetadata
}

// TransitionHook is executed before or after a transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionHookPhase identifies whether a hook ran before or after persistence.
type TransitionHookPhase string

const (
	HookPhaseBefore TransitionHookPhase = "before_transition"
	HookPhaseAfter  TransitionHookPhase = "after_transition"
)

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// AccountStateMachine owns every role, status and creator application change.
type AccountStateMachine interface {
	ApplyCreator(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)
	ApproveCreator(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)
	RejectCreator(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)
	AssignRole(ctx context.Context, actor ActorRef, account *Account, role Role, opts ...TransitionOption) (*Account, error)
	SetStatus(ctx context.Context, actor ActorRef, account *Account, status AccountStatus, opts ...TransitionOption) (*Account, error)
}

// HookErrorHandler handles errors surfaced by transition hooks.
type HookErrorHandler func(ctx context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accountStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineHookErrorHandler overrides how hook failures are propagated.
// The default handler returns the hook error unchanged.
func WithStateMachineHookErrorHandler(handler HookErrorHandler) StateMachineOption {
	return func(sm *accountStateMachine) {
		if handler != nil {
			sm.hookErrorHandler = handler
		}
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithBeforeTransitionHook adds a hook executed before the update.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the update succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// NewAccountStateMachine returns the default implementation backed by the provided store.
func NewAccountStateMachine(store Accounts, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		store:        store,
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		applications: map[ApplicationStatus]map[ApplicationStatus]struct{}{
			ApplicationNone: {
				ApplicationPending: {},
			},
			ApplicationPending: {
				ApplicationApproved: {},
				ApplicationRejected: {},
			},
		},
		hookErrorHandler: func(_ context.Context, _ TransitionHookPhase, err error, _ TransitionContext) error {
			return err
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	store            Accounts
	applications     map[ApplicationStatus]map[ApplicationStatus]struct{}
	now              func() time.Time
	activitySink     ActivitySink
	logger           Logger
	hookErrorHandler HookErrorHandler
}

type transitionOptions struct {
	metadata    TransitionMetadata
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
}

func (o *transitionOptions) cloneMetadata() TransitionMetadata {
	var cloned map[string]any
	if len(o.metadata.Metadata) > 0 {
		cloned = make(map[string]any, len(o.metadata.Metadata))
		for k, v := range o.metadata.Metadata {
			cloned[k] = v
		}
	}

	return TransitionMetadata{
		Reason:   o.metadata.Reason,
		Metadata: cloned,
	}
}

// ApplyCreator moves a user's application from none to pending.
func (sm *accountStateMachine) ApplyCreator(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}

	if account.Role != RoleUser {
		return nil, ErrCreatorApplicationUserOnly
	}

	from := account.CreatorApplicationStatus
	switch from {
	case ApplicationNone:
	case ApplicationPending, ApplicationApproved:
		return nil, ErrCreatorApplicationExists
	case ApplicationRejected:
		return nil, ErrCreatorApplicationClosed
	default:
		return nil, ErrCreatorApplicationExists
	}

	next := account.Clone()
	next.CreatorApplicationStatus = ApplicationPending

	return sm.commit(ctx, transition{
		kind:    TransitionApplyCreator,
		event:   ActivityEventCreatorApplied,
		actor:   actor,
		before:  account,
		next:    next,
		from:    string(from),
		to:      string(ApplicationPending),
		columns: []string{ColumnCreatorApplicationStatus},
		guard:   GuardColumn(ColumnCreatorApplicationStatus, string(from)),
	}, opts...)
}

// ApproveCreator accepts a pending application and grants the creator role.
func (sm *accountStateMachine) ApproveCreator(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return sm.decide(ctx, actor, account, ApplicationApproved, opts...)
}

// RejectCreator closes a pending application. The role is unchanged.
func (sm *accountStateMachine) RejectCreator(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return sm.decide(ctx, actor, account, ApplicationRejected, opts...)
}

func (sm *accountStateMachine) decide(ctx context.Context, actor ActorRef, account *Account, target ApplicationStatus, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}

	from := account.CreatorApplicationStatus
	if !sm.canMoveApplication(from, target) {
		return nil, ErrCreatorApplicationNotPending
	}

	next := account.Clone()
	next.CreatorApplicationStatus = target

	event := ActivityEventCreatorRejected
	switch target {
	case ApplicationApproved:
		next.Role = RoleCreator
		event = ActivityEventCreatorApproved
	case ApplicationRejected:
	case ApplicationNone, ApplicationPending:
		return nil, ErrCreatorApplicationNotPending
	}

	return sm.commit(ctx, transition{
		kind:    decisionKind(target),
		event:   event,
		actor:   actor,
		before:  account,
		next:    next,
		from:    string(from),
		to:      string(target),
		columns: []string{ColumnCreatorApplicationStatus, ColumnRole},
		guard:   GuardColumn(ColumnCreatorApplicationStatus, string(from)),
	}, opts...)
}

// AssignRole overrides the role. Application status is left untouched.
func (sm *accountStateMachine) AssignRole(ctx context.Context, actor ActorRef, account *Account, role Role, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}

	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	from := account.Role
	next := account.Clone()
	next.Role = role

	return sm.commit(ctx, transition{
		kind:    TransitionAssignRole,
		event:   ActivityEventRoleChanged,
		actor:   actor,
		before:  account,
		next:    next,
		from:    string(from),
		to:      string(role),
		columns: []string{ColumnRole},
		guard:   GuardColumn(ColumnRole, string(from)),
	}, opts...)
}

// SetStatus overrides the lifecycle status.
func (sm *accountStateMachine) SetStatus(ctx context.Context, actor ActorRef, account *Account, status AccountStatus, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}

	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	from := account.Status
	next := account.Clone()
	next.Status = status

	return sm.commit(ctx, transition{
		kind:    TransitionSetStatus,
		event:   ActivityEventStatusChanged,
		actor:   actor,
		before:  account,
		next:    next,
		from:    string(from),
		to:      string(status),
		columns: []string{ColumnStatus},
		guard:   GuardColumn(ColumnStatus, string(from)),
	}, opts...)
}

type transition struct {
	kind    TransitionKind
	event   ActivityEventType
	actor   ActorRef
	before  *Account
	next    *Account
	from    string
	to      string
	columns []string
	guard   UpdateGuard
}

func (sm *accountStateMachine) commit(ctx context.Context, t transition, opts ...TransitionOption) (*Account, error) {
	options := sm.buildTransitionOptions(opts...)

	tc := TransitionContext{
		Kind:    t.kind,
		Actor:   t.actor,
		Account: t.before,
		From:    t.from,
		To:      t.to,
		Meta:    options.cloneMetadata(),
	}

	if err := sm.runHooks(ctx, options.beforeHooks, tc, HookPhaseBefore); err != nil {
		return nil, err
	}

	updated, err := sm.store.UpdateColumns(ctx, t.next, t.columns, t.guard)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		updated = t.next
	}

	tc.Account = updated
	if err := sm.runHooks(ctx, options.afterHooks, tc, HookPhaseAfter); err != nil {
		return nil, err
	}

	recordActivity(ctx, sm.activitySink, sm.logger, sm.now, ActivityEvent{
		EventType: t.event,
		Actor:     t.actor,
		AccountID: updated.ID.String(),
		From:      t.from,
		To:        t.to,
		Metadata:  sm.transitionMetadata(tc.Meta),
	})

	return updated, nil
}

func (sm *accountStateMachine) canMoveApplication(from, to ApplicationStatus) bool {
	if allowed, ok := sm.applications[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *accountStateMachine) runHooks(ctx context.Context, hooks []TransitionHook, data TransitionContext, phase TransitionHookPhase) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, data); err != nil {
			if sm.hookErrorHandler == nil {
				return err
			}
			return sm.hookErrorHandler(ctx, phase, err, data)
		}
	}
	return nil
}

func (sm *accountStateMachine) buildTransitionOptions(opts ...TransitionOption) *transitionOptions {
	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

func (sm *accountStateMachine) transitionMetadata(meta TransitionMetadata) map[string]any {
	out := map[string]any{}
	for k, v := range meta.Metadata {
		out[k] = v
	}
	if meta.Reason != "" {
		out["reason"] = meta.Reason
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func decisionKind(target ApplicationStatus) TransitionKind {
	if target == ApplicationApproved {
		return TransitionApproveCreator
	}
	return TransitionRejectCreator
}
