package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// AccountFinder is the store the provider reads accounts from
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// AccountProvider verifies login attempts against stored accounts
type AccountProvider struct {
	store  AccountFinder
	hasher PasswordHasher
	logger Logger
}

var _ IdentityVerifier = (*AccountProvider)(nil)

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountFinder, hasher PasswordHasher) *AccountProvider {
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	return &AccountProvider{
		store:  store,
		hasher: hasher,
		logger: defLogger{},
	}
}

func (u *AccountProvider) WithLogger(l Logger) *AccountProvider {
	u.logger = normalizeLogger(l)
	return u
}

// VerifyIdentity runs the login checks in order and stops at the first
// failure: unknown email, unconfirmed email, disapproved account, wrong
// password.
func (u *AccountProvider) VerifyIdentity(ctx context.Context, email, password string) (*Account, error) {
	account, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountNotFound):
			return nil, ErrWrongEmail
		case IsConflict(err):
			u.logger.Error("multiple accounts share an email", "email", email)
			return nil, err
		case IsUnauthorized(err):
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if !account.IsActive {
		return nil, ErrUnconfirmedEmail
	}

	if !account.IsApprovedRole() {
		return nil, ErrDisapprovedAccount
	}

	if err := u.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if errors.Is(err, ErrWrongPassword) {
			return nil, ErrWrongPassword
		}
		return nil, err
	}

	return account, nil
}
