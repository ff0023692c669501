package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const (
	// DigitCharset yields numeric codes
	DigitCharset = "0123456789"
	// AlnumCharset yields lowercase letters and digits, no symbols
	AlnumCharset = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// DefaultOTPLength is the code length when none is configured
const DefaultOTPLength = 6

// RandomCodeGenerator draws codes from crypto/rand
type RandomCodeGenerator struct {
	length  int
	charset string
}

var _ CodeGenerator = RandomCodeGenerator{}

// NewRandomCodeGenerator returns a generator for codes of length drawn from
// charset.
func NewRandomCodeGenerator(length int, charset string) RandomCodeGenerator {
	if length <= 0 {
		length = DefaultOTPLength
	}
	if charset == "" {
		charset = DigitCharset
	}
	return RandomCodeGenerator{length: length, charset: charset}
}

// Generate returns a new code
func (g RandomCodeGenerator) Generate() (string, error) {
	max := big.NewInt(int64(len(g.charset)))
	out := make([]byte, g.length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random source")
		}
		out[i] = g.charset[n.Int64()]
	}
	return string(out), nil
}

// IssuedOTP describes a code that was stored and delivered
type IssuedOTP struct {
	Code      string
	Purpose   OTPPurpose
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// OTPIssuer generates codes, records them on the account and hands them to
// the mailer.
type OTPIssuer struct {
	repo     RepositoryManager
	mailer   Mailer
	codes    CodeGenerator
	now      clock
	logger   Logger
	activity ActivitySink
}

// OTPIssuerOption customizes the issuer
type OTPIssuerOption func(*OTPIssuer)

// WithOTPIssuerClock injects a custom clock (useful for tests).
func WithOTPIssuerClock(now func() time.Time) OTPIssuerOption {
	return func(i *OTPIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithOTPIssuerLogger overrides the logger
func WithOTPIssuerLogger(logger Logger) OTPIssuerOption {
	return func(i *OTPIssuer) {
		i.logger = normalizeLogger(logger)
	}
}

// WithOTPIssuerActivitySink sets the sink used to publish issuance events
func WithOTPIssuerActivitySink(sink ActivitySink) OTPIssuerOption {
	return func(i *OTPIssuer) {
		i.activity = normalizeActivitySink(sink)
	}
}

// NewOTPIssuer returns an issuer backed by repo
func NewOTPIssuer(repo RepositoryManager, mailer Mailer, codes CodeGenerator, opts ...OTPIssuerOption) *OTPIssuer {
	if codes == nil {
		codes = NewRandomCodeGenerator(DefaultOTPLength, DigitCharset)
	}

	issuer := &OTPIssuer{
		repo:     repo,
		mailer:   mailer,
		codes:    codes,
		now:      systemClock,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}

	return issuer
}

// Issue generates a fresh code for the account matching email. Any code
// issued before is superseded. Storage and delivery share one transaction,
// so a delivery failure leaves the account untouched.
func (i *OTPIssuer) Issue(ctx context.Context, email string, purpose OTPPurpose) (*IssuedOTP, error) {
	if !purpose.IsValid() {
		return nil, ErrInvalidPurpose
	}

	var issued *IssuedOTP
	var account *Account

	err := i.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = i.repo.Accounts().FindByEmailTx(ctx, tx, email)
		if err != nil {
			return err
		}

		issued, err = i.IssueTx(ctx, tx, account, purpose)
		return err
	})
	if err != nil {
		return nil, err
	}

	i.recordActivity(ctx, account, issued)

	return issued, nil
}

// IssueTx stores and delivers a code for account inside tx
func (i *OTPIssuer) IssueTx(ctx context.Context, tx bun.IDB, account *Account, purpose OTPPurpose) (*IssuedOTP, error) {
	if !purpose.IsValid() {
		return nil, ErrInvalidPurpose
	}

	code, err := i.codes.Generate()
	if err != nil {
		return nil, err
	}

	now := i.now()
	issued := &IssuedOTP{
		Code:      code,
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(OTPExpiration),
	}

	if err := i.repo.Accounts().SetOTPTx(ctx, tx, account.ID, code, purpose, now); err != nil {
		return nil, err
	}

	if err := i.mailer.Send(ctx, otpMessage(account, issued)); err != nil {
		i.logger.Error("otp delivery failed", "email", account.Email, "purpose", purpose, "error", err)
		return nil, ErrDeliveryFailed
	}

	account.OTP = &issued.Code
	account.OTPCreatedAt = &issued.IssuedAt
	account.OTPPurpose = purpose

	return issued, nil
}

func (i *OTPIssuer) recordActivity(ctx context.Context, account *Account, issued *IssuedOTP) {
	event := ActivityEvent{
		EventType: ActivityEventOTPIssued,
		Actor:     ActorRef{ID: account.ID.String(), Type: "user"},
		UserID:    account.ID.String(),
		Metadata: map[string]any{
			"purpose":    string(issued.Purpose),
			"expires_at": issued.ExpiresAt,
		},
		OccurredAt: issued.IssuedAt,
	}

	if err := i.activity.Record(ctx, event); err != nil {
		i.logger.Warn("activity sink error during otp issuance", "error", err)
	}
}
