package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-postauth"
)

func TestAuthenticatorLogin(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	acc := testAccount(auth.RoleAdministrator)

	verifier := &MockIdentityVerifier{}
	verifier.On("VerifyIdentity", mock.Anything, "user@example.com", "secret-password").Return(acc, nil)

	tokens := auth.NewTokenService([]byte("test-signing-key"), time.Hour, "postauth-test", auth.WithTokenClock(clock.Now))
	sink := &captureSink{}

	auther := auth.NewAuthenticator(verifier, tokens).
		WithLogger(&captureLogger{}).
		WithActivitySink(sink).
		WithClock(clock.Now)

	token, err := auther.Login(ctx, "user@example.com", "secret-password")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := auther.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID.String(), claims.Subject)
	assert.Equal(t, auth.RoleAdministrator, claims.Role)
	assert.Equal(t, acc.Username, claims.Username)

	event := sink.Last()
	assert.Equal(t, auth.ActivityEventLoginSuccess, event.EventType)
	assert.Equal(t, acc.ID.String(), event.UserID)
	assert.Equal(t, "administrator", event.Metadata["role"])
	assert.True(t, event.OccurredAt.Equal(clock.Now()))

	assert.Same(t, tokens, auther.TokenService())
	verifier.AssertExpectations(t)
}

func TestAuthenticatorLoginFailure(t *testing.T) {
	verifier := &MockIdentityVerifier{}
	verifier.On("VerifyIdentity", mock.Anything, "user@example.com", "bad").Return(nil, auth.ErrWrongPassword)

	tokens := &MockTokenIssuer{}
	sink := &captureSink{}

	auther := auth.NewAuthenticator(verifier, tokens).
		WithLogger(&captureLogger{}).
		WithActivitySink(sink)

	token, err := auther.Login(context.Background(), "user@example.com", "bad")
	assert.ErrorIs(t, err, auth.ErrWrongPassword)
	assert.Empty(t, token)

	event := sink.Last()
	assert.Equal(t, auth.ActivityEventLoginFailure, event.EventType)
	assert.Equal(t, "user@example.com", event.Metadata["email"])

	tokens.AssertNotCalled(t, "Issue", mock.Anything)
}

func TestAuthenticatorLoginSigningFailure(t *testing.T) {
	acc := testAccount(auth.RoleContributor)

	verifier := &MockIdentityVerifier{}
	verifier.On("VerifyIdentity", mock.Anything, mock.Anything, mock.Anything).Return(acc, nil)

	tokens := &MockTokenIssuer{}
	tokens.On("Issue", mock.AnythingOfType("*auth.SessionClaims")).Return("", errors.New("signer offline"))

	sink := &captureSink{}
	auther := auth.NewAuthenticator(verifier, tokens).
		WithLogger(&captureLogger{}).
		WithActivitySink(sink)

	_, err := auther.Login(context.Background(), "user@example.com", "pw")
	assert.Error(t, err)
	assert.Equal(t, auth.ActivityEventLoginFailure, sink.Last().EventType)
	assert.Equal(t, acc.ID.String(), sink.Last().UserID)
}

func TestAuthenticatorSessionFromTokenErrors(t *testing.T) {
	tokens := &MockTokenIssuer{}
	tokens.On("Validate", "expired").Return(nil, auth.ErrTokenExpired)

	auther := auth.NewAuthenticator(&MockIdentityVerifier{}, tokens).WithLogger(&captureLogger{})

	claims, err := auther.SessionFromToken("expired")
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestAuthenticatorAgainstStore(t *testing.T) {
	f := newFixture(t)
	f.admin(t)
	f.seedAccount(t, seed{email: "pending@example.com", active: true})

	token, err := f.svc.Auther.Login(context.Background(), "admin@example.com", testPassword)
	require.NoError(t, err)

	claims, err := f.svc.Tokens.Validate(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdministrator())

	_, err = f.svc.Auther.Login(context.Background(), "pending@example.com", testPassword)
	assert.ErrorIs(t, err, auth.ErrDisapprovedAccount)

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventLoginSuccess,
		auth.ActivityEventLoginFailure,
	}, f.sink.Types())
}
