package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-postauth"
)

func TestLogMailer(t *testing.T) {
	logger := &captureLogger{}
	mailer := auth.NewLogMailer(logger)

	err := mailer.Send(context.Background(), auth.Message{
		To:      "someone@example.com",
		Subject: "Confirm your account",
		Body:    "code 123456",
	})
	require.NoError(t, err)

	require.Len(t, logger.calls, 1)
	call := logger.calls[0]
	assert.Equal(t, "info", call.level)
	assert.Contains(t, call.message, "SENDING EMAIL")
	assert.Contains(t, call.args, "someone@example.com")
	assert.Contains(t, call.args, "code 123456")
}

func TestMailerFunc(t *testing.T) {
	var got auth.Message
	mailer := auth.MailerFunc(func(_ context.Context, msg auth.Message) error {
		got = msg
		return nil
	})

	require.NoError(t, mailer.Send(context.Background(), auth.Message{To: "a@example.com"}))
	assert.Equal(t, "a@example.com", got.To)

	var nilFunc auth.MailerFunc
	assert.NoError(t, nilFunc.Send(context.Background(), auth.Message{}))
}

func TestNewSMTPMailer(t *testing.T) {
	mailer, err := auth.NewSMTPMailer(auth.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     2525,
		Username: "user",
		Password: "secret",
	}, "no-reply@example.com")
	require.NoError(t, err)
	assert.NotNil(t, mailer)

	_, err = auth.NewSMTPMailer(auth.SMTPConfig{Port: 25}, "no-reply@example.com")
	assert.Error(t, err, "a host is required")
}

func TestActivitySinkFunc(t *testing.T) {
	var got auth.ActivityEventType
	sink := auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		got = event.EventType
		return nil
	})

	require.NoError(t, sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventPostCreated}))
	assert.Equal(t, auth.ActivityEventPostCreated, got)

	var nilSink auth.ActivitySinkFunc
	assert.NoError(t, nilSink.Record(context.Background(), auth.ActivityEvent{}))
}

func TestNewServicesWiring(t *testing.T) {
	f := newFixture(t)

	assert.NotNil(t, f.svc.Tokens)
	assert.NotNil(t, f.svc.Issuer)
	assert.NotNil(t, f.svc.Machine)
	assert.NotNil(t, f.svc.Provider)
	assert.NotNil(t, f.svc.Auther)
	assert.NotNil(t, f.svc.Register)
	assert.NotNil(t, f.svc.ChangePassword)
	assert.NotNil(t, f.svc.RecoverPassword)
	assert.NotNil(t, f.svc.Posts)
	assert.Same(t, f.cfg, f.svc.Config)
	assert.Same(t, f.svc.Tokens, f.svc.Auther.TokenService())

	assert.Panics(t, func() {
		auth.NewServices(testConfig(), auth.NewRepositoryManager(nil), &MockMailer{})
	})
}
