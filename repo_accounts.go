package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OTPConsumption lists the writes that ride along with clearing a code
type OTPConsumption struct {
	Activate     bool
	PasswordHash string
}

// Accounts is the account store. Lookups by email must resolve to exactly
// one document: zero is ErrAccountNotFound, more than one ErrDuplicateAccount.
type Accounts interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error)

	Create(ctx context.Context, record *Account) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)

	SetOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, purpose OTPPurpose, issuedAt time.Time) error
	ConsumeOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, purpose OTPPurpose, c OTPConsumption) (bool, error)
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, currentHash, newHash string) (bool, error)
	ApproveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type accounts struct {
	db  *bun.DB
	now clock
}

var _ Accounts = (*accounts)(nil)

// AccountsOption customizes the repository
type AccountsOption func(*accounts)

// WithAccountsClock sets the clock used for updated_at stamps
func WithAccountsClock(now func() time.Time) AccountsOption {
	return func(a *accounts) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAccountsRepository returns the bun account store
func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := &accounts{
		db:  db,
		now: systemClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	email = strings.TrimSpace(email)

	var records []*Account
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.email = ?", email).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(2).
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query accounts")
	}

	switch len(records) {
	case 0:
		return nil, ErrAccountNotFound
	case 1:
		return records[0], nil
	default:
		return nil, ErrDuplicateAccount
	}
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *accounts) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account")
	}
	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account) (*Account, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record, a.now())

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert account")
	}
	return record, nil
}

func (a *accounts) SetOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, purpose OTPPurpose, issuedAt time.Time) error {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("otp = ?", code).
		Set("otp_created_at = ?", issuedAt).
		Set("otp_purpose = ?", string(purpose)).
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification code")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ConsumeOTPTx clears the stored code only if it still equals code and was
// issued for purpose. A false result means another request consumed or
// replaced the code first.
func (a *accounts) ConsumeOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, purpose OTPPurpose, c OTPConsumption) (bool, error) {
	q := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("otp = NULL").
		Set("otp_created_at = NULL").
		Set("otp_purpose = NULL").
		Set("updated_at = ?", a.now())

	if c.Activate {
		q = q.Set("is_active = ?", true)
	}

	if c.PasswordHash != "" {
		q = q.Set("password_hash = ?", c.PasswordHash)
	}

	res, err := q.
		Where("id = ?", id).
		Where("otp = ?", code).
		Where("otp_purpose = ?", string(purpose)).
		Exec(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification code")
	}

	return affectedOne(res)
}

// UpdatePasswordTx swaps the hash only if the stored one is still currentHash
func (a *accounts) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, currentHash, newHash string) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("password_hash = ?", newHash).
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Where("password_hash = ?", currentHash).
		Exec(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}

	return affectedOne(res)
}

func (a *accounts) ApproveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("approved = ?", true).
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to approve account")
	}

	ok, err := affectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotFound
	}
	return nil
}

func prepareAccountDefaults(record *Account, now time.Time) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = strings.TrimSpace(record.Email)

	if record.Role == 0 {
		record.Role = RoleContributor
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
}
