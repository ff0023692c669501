package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// MinPasswordLength and MaxPasswordLength bound new passwords. bcrypt only
// reads the first 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// ChangePasswordMessage is the authenticated password change request
type ChangePasswordMessage struct {
	Claims      *SessionClaims `json:"-"`
	Password    string         `json:"password" example:"old_secret_word" doc:"Current password"`
	NewPassword string         `json:"new_password" example:"new_secret_word" doc:"New password"`
}

func (e ChangePasswordMessage) Type() string { return "account.password.change" }

// Validate will run validation rules
func (e ChangePasswordMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Claims, validation.Required),
		validation.Field(&e.Password, validation.Required),
		validation.Field(&e.NewPassword, validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength)),
	)
}

// ChangePasswordHandler overwrites the hash of a signed in account after
// re-checking the current password.
type ChangePasswordHandler struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	activity ActivitySink
	logger   Logger
	now      clock
}

// NewChangePasswordHandler creates a handler with sane defaults.
func NewChangePasswordHandler(repo RepositoryManager, hasher PasswordHasher) *ChangePasswordHandler {
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	return &ChangePasswordHandler{
		repo:     repo,
		hasher:   hasher,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      systemClock,
	}
}

// WithActivitySink sets the sink used to emit password change events.
func (h *ChangePasswordHandler) WithActivitySink(sink ActivitySink) *ChangePasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	if event.Claims == nil {
		return ErrMissingSession
	}

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid password change request").
			WithCode(goerrors.CodeBadRequest)
	}

	id, err := event.Claims.AccountID()
	if err != nil {
		return ErrTokenMalformed
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var account *Account

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = h.repo.Accounts().GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := h.hasher.ComparePasswordAndHash(event.Password, account.PasswordHash); err != nil {
			return err
		}

		hash, err := h.hasher.HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		ok, err := h.repo.Accounts().UpdatePasswordTx(ctx, tx, account.ID, account.PasswordHash, hash)
		if err != nil {
			return err
		}

		// someone else changed the password between our read and write
		if !ok {
			return ErrWrongPassword
		}

		account.PasswordHash = hash
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to change password")
	}

	h.recordActivity(ctx, account)

	return nil
}

func (h *ChangePasswordHandler) recordActivity(ctx context.Context, account *Account) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordChanged,
		Actor:      accountActor(account),
		UserID:     account.ID.String(),
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password change", "error", err)
	}
}
