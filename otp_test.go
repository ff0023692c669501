package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-postauth"
)

func TestRandomCodeGenerator(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		charset string
		wantLen int
		allowed string
	}{
		{"digits", 6, auth.DigitCharset, 6, auth.DigitCharset},
		{"alnum", 10, auth.AlnumCharset, 10, auth.AlnumCharset},
		{"defaults", 0, "", auth.DefaultOTPLength, auth.DigitCharset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := auth.NewRandomCodeGenerator(tt.length, tt.charset)
			seen := map[string]struct{}{}

			for i := 0; i < 50; i++ {
				code, err := gen.Generate()
				require.NoError(t, err)
				assert.Len(t, code, tt.wantLen)
				for _, r := range code {
					assert.True(t, strings.ContainsRune(tt.allowed, r), "unexpected rune %q", r)
				}
				seen[code] = struct{}{}
			}

			assert.Greater(t, len(seen), 1, "codes should vary")
		})
	}
}

func TestOTPIssuerIssue(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, seed{email: "new@example.com", username: "newbie"})

	issued := f.issue(t, "new@example.com", auth.OTPPurposeConfirm)

	assert.Equal(t, "000001", issued.Code)
	assert.Equal(t, auth.OTPPurposeConfirm, issued.Purpose)
	assert.True(t, issued.IssuedAt.Equal(f.clock.Now()))
	assert.True(t, issued.ExpiresAt.Equal(f.clock.Now().Add(auth.OTPExpiration)))

	stored := f.reload(t, acc.ID)
	require.True(t, stored.HasOTP())
	assert.Equal(t, "000001", *stored.OTP)
	assert.Equal(t, auth.OTPPurposeConfirm, stored.OTPPurpose)
	assert.True(t, stored.OTPCreatedAt.Equal(f.clock.Now()))

	f.mailer.AssertCalled(t, "Send", mock.Anything, mock.MatchedBy(func(msg auth.Message) bool {
		return msg.To == "new@example.com" &&
			msg.Subject == "Confirm your account" &&
			strings.Contains(msg.Body, "000001")
	}))

	assert.Equal(t, auth.ActivityEventOTPIssued, f.sink.Last().EventType)
	assert.Equal(t, "confirm", f.sink.Last().Metadata["purpose"])
}

func TestOTPIssuerReissueSupersedesPreviousCode(t *testing.T) {
	f := newFixture(t)
	acc := f.seedAccount(t, seed{email: "again@example.com"})

	first := f.issue(t, "again@example.com", auth.OTPPurposeConfirm)
	f.clock.Advance(time.Minute)
	second := f.issue(t, "again@example.com", auth.OTPPurposeRecover)

	assert.NotEqual(t, first.Code, second.Code)

	stored := f.reload(t, acc.ID)
	assert.Equal(t, second.Code, *stored.OTP)
	assert.Equal(t, auth.OTPPurposeRecover, stored.OTPPurpose)
	assert.True(t, stored.OTPCreatedAt.Equal(f.clock.Now()))

	f.mailer.AssertCalled(t, "Send", mock.Anything, mock.MatchedBy(func(msg auth.Message) bool {
		return msg.Subject == "Reset your password" && strings.Contains(msg.Body, second.Code)
	}))

	_, err := f.svc.Machine.ConfirmAccount(context.Background(), "again@example.com", first.Code)
	assert.ErrorIs(t, err, auth.ErrInvalidCode)
}

func TestOTPIssuerDeliveryFailureRollsBack(t *testing.T) {
	mailer := &MockMailer{}
	mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	f := newFixtureWithMailer(t, mailer)
	acc := f.seedAccount(t, seed{email: "offline@example.com"})

	issued, err := f.svc.Issuer.Issue(context.Background(), "offline@example.com", auth.OTPPurposeRecover)
	require.Error(t, err)
	assert.Nil(t, issued)
	assert.True(t, auth.IsDeliveryError(err))

	stored := f.reload(t, acc.ID)
	assert.False(t, stored.HasOTP(), "no code is stored when delivery fails")
	assert.Empty(t, stored.OTPPurpose)
	assert.Empty(t, f.sink.Types())

	mailer.AssertNumberOfCalls(t, "Send", 1)
}

func TestOTPIssuerErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Issuer.Issue(context.Background(), "ghost@example.com", auth.OTPPurposeConfirm)
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)

	f.seedAccount(t, seed{email: "known@example.com"})
	_, err = f.svc.Issuer.Issue(context.Background(), "known@example.com", auth.OTPPurpose("magic"))
	assert.ErrorIs(t, err, auth.ErrInvalidPurpose)

	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
