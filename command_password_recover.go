package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RecoverPasswordMessage is the unauthenticated, OTP gated reset request
type RecoverPasswordMessage struct {
	Email       string `json:"email" example:"user@example.com" doc:"Account email"`
	OTP         string `json:"otp" example:"482913" doc:"Recovery code"`
	NewPassword string `json:"new_password" example:"new_secret_word" doc:"New password"`
}

func (e RecoverPasswordMessage) Type() string { return "account.password.recover" }

// Validate will run validation rules
func (e RecoverPasswordMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.OTP, validation.Required),
		validation.Field(&e.NewPassword, validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength)),
	)
}

// RecoverPasswordHandler replaces the password of an account that proves
// control of its email with a Recover code.
type RecoverPasswordHandler struct {
	repo     RepositoryManager
	machine  AccountStateMachine
	hasher   PasswordHasher
	activity ActivitySink
	logger   Logger
	now      clock
}

// NewRecoverPasswordHandler creates a handler with sane defaults.
func NewRecoverPasswordHandler(repo RepositoryManager, machine AccountStateMachine, hasher PasswordHasher) *RecoverPasswordHandler {
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	return &RecoverPasswordHandler{
		repo:     repo,
		machine:  machine,
		hasher:   hasher,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      systemClock,
	}
}

// WithActivitySink sets the sink used to emit password recovery events.
func (h *RecoverPasswordHandler) WithActivitySink(sink ActivitySink) *RecoverPasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RecoverPasswordHandler) WithLogger(logger Logger) *RecoverPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RecoverPasswordHandler) Execute(ctx context.Context, event RecoverPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password recovery",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RecoverPasswordHandler) execute(ctx context.Context, event RecoverPasswordMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid password recovery request").
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var account *Account

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = h.repo.Accounts().FindByEmailTx(ctx, tx, event.Email)
		if err != nil {
			return err
		}

		// the code check is a hard stop, nothing is hashed or written before it passes
		if err := h.machine.CheckOTP(account, event.OTP, OTPPurposeRecover); err != nil {
			return err
		}

		hash, err := h.hasher.HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		return h.machine.ConsumeOTP(ctx, tx, account, event.OTP, OTPPurposeRecover, OTPConsumption{
			PasswordHash: hash,
		})
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to recover password")
	}

	h.recordActivity(ctx, account)

	return nil
}

func (h *RecoverPasswordHandler) recordActivity(ctx context.Context, account *Account) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordRecovered,
		Actor:      accountActor(account),
		UserID:     account.ID.String(),
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password recovery", "error", err)
	}
}
