package auth

import (
	"context"
	"crypto/subtle"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// AccountStatus is the lifecycle state derived from the account flags
type AccountStatus string

const (
	AccountStatusUnconfirmed     AccountStatus = "unconfirmed"
	AccountStatusPendingApproval AccountStatus = "pending_approval"
	AccountStatusActive          AccountStatus = "active"
)

// OTPState is the sub state of the code slot
type OTPState string

const (
	OTPStateNone    OTPState = "none"
	OTPStatePending OTPState = "pending"
	OTPStateExpired OTPState = "expired"
)

// AccountStateMachine governs confirmation, approval and the OTP cycle
type AccountStateMachine interface {
	Status(acc *Account) AccountStatus
	OTPState(acc *Account) OTPState
	CheckOTP(acc *Account, code string, purpose OTPPurpose) error
	ConsumeOTP(ctx context.Context, tx bun.IDB, acc *Account, code string, purpose OTPPurpose, c OTPConsumption) error
	ConfirmAccount(ctx context.Context, email, code string) (*Account, error)
	Approve(ctx context.Context, actor *SessionClaims, email string) (*Account, error)
}

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

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewAccountStateMachine returns the default implementation backed by the provided repository.
func NewAccountStateMachine(repo RepositoryManager, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		repo: repo,
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			AccountStatusUnconfirmed: {
				AccountStatusPendingApproval: {},
				AccountStatusActive:          {},
			},
			AccountStatusPendingApproval: {
				AccountStatusActive: {},
			},
		},
		now:          systemClock,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	repo         RepositoryManager
	transitions  map[AccountStatus]map[AccountStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

func (sm *accountStateMachine) Status(acc *Account) AccountStatus {
	switch {
	case acc == nil || !acc.IsActive:
		return AccountStatusUnconfirmed
	case !acc.IsApprovedRole():
		return AccountStatusPendingApproval
	default:
		return AccountStatusActive
	}
}

func (sm *accountStateMachine) OTPState(acc *Account) OTPState {
	if acc == nil || !acc.HasOTP() {
		return OTPStateNone
	}
	if IsOutsideWindow(*acc.OTPCreatedAt, sm.now(), OTPExpiration) {
		return OTPStateExpired
	}
	return OTPStatePending
}

// CheckOTP validates code against the stored slot without mutating anything
func (sm *accountStateMachine) CheckOTP(acc *Account, code string, purpose OTPPurpose) error {
	if acc == nil || !acc.HasOTP() || code == "" {
		return ErrInvalidCode
	}

	if subtle.ConstantTimeCompare([]byte(*acc.OTP), []byte(code)) != 1 {
		return ErrInvalidCode
	}

	if acc.OTPPurpose != purpose {
		return ErrInvalidCode
	}

	if IsOutsideWindow(*acc.OTPCreatedAt, sm.now(), OTPExpiration) {
		return ErrExpiredCode
	}

	return nil
}

// ConsumeOTP checks the code and clears it with a conditional update keyed
// on the stored code and purpose, applying c in the same write. A failed
// check returns before any write happens.
func (sm *accountStateMachine) ConsumeOTP(ctx context.Context, tx bun.IDB, acc *Account, code string, purpose OTPPurpose, c OTPConsumption) error {
	if err := sm.CheckOTP(acc, code, purpose); err != nil {
		return err
	}

	ok, err := sm.repo.Accounts().ConsumeOTPTx(ctx, tx, acc.ID, code, purpose, c)
	if err != nil {
		return err
	}

	if !ok {
		return ErrInvalidCode
	}

	acc.OTP = nil
	acc.OTPCreatedAt = nil
	acc.OTPPurpose = ""
	if c.Activate {
		acc.IsActive = true
	}
	if c.PasswordHash != "" {
		acc.PasswordHash = c.PasswordHash
	}

	return nil
}

func (sm *accountStateMachine) ConfirmAccount(ctx context.Context, email, code string) (*Account, error) {
	var account *Account
	var from AccountStatus

	err := sm.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = sm.repo.Accounts().FindByEmailTx(ctx, tx, email)
		if err != nil {
			return err
		}

		from = sm.Status(account)

		return sm.ConsumeOTP(ctx, tx, account, code, OTPPurposeConfirm, OTPConsumption{Activate: true})
	})
	if err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventAccountConfirmed,
		Actor:      accountActor(account),
		UserID:     account.ID.String(),
		FromStatus: from,
		ToStatus:   sm.Status(account),
	})

	return account, nil
}

func (sm *accountStateMachine) Approve(ctx context.Context, actor *SessionClaims, email string) (*Account, error) {
	if actor == nil {
		return nil, ErrMissingSession
	}

	if !actor.Role.CanApprove() {
		return nil, ErrForbidden
	}

	var account *Account
	var from AccountStatus

	err := sm.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = sm.repo.Accounts().FindByEmailTx(ctx, tx, email)
		if err != nil {
			return err
		}

		from = sm.Status(account)
		if account.Approved || account.IsAdministrator() {
			return nil
		}

		// unconfirmed accounts keep their status until the code is consumed
		to := AccountStatusUnconfirmed
		if account.IsActive {
			to = AccountStatusActive
		}

		if from != to && !sm.canTransition(from, to) {
			return ErrInvalidTransition
		}

		if err := sm.repo.Accounts().ApproveTx(ctx, tx, account.ID); err != nil {
			return err
		}
		account.Approved = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventAccountApproved,
		Actor:      ActorRef{ID: actor.Subject, Type: "user"},
		UserID:     account.ID.String(),
		FromStatus: from,
		ToStatus:   sm.Status(account),
	})

	return account, nil
}

func (sm *accountStateMachine) canTransition(from, to AccountStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *accountStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error", "error", err)
	}
}
