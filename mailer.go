package auth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

// Message is a plain text email
type Message struct {
	To      string
	Subject string
	Body    string
}

// MailerFunc adapts a function to the Mailer interface
type MailerFunc func(ctx context.Context, msg Message) error

// Send implements Mailer
func (f MailerFunc) Send(ctx context.Context, msg Message) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

// LogMailer writes messages to the logger instead of sending them. Useful
// for development.
type LogMailer struct {
	logger Logger
}

// NewLogMailer returns a mailer that only logs
func NewLogMailer(logger Logger) *LogMailer {
	return &LogMailer{logger: normalizeLogger(logger)}
}

// Send implements Mailer
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("====== SENDING EMAIL NOTIFICATION =======",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

// SMTPMailer delivers messages through an SMTP server
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer builds a mailer from the SMTP settings
func NewSMTPMailer(cfg SMTPConfig, from string) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create smtp client")
	}

	return &SMTPMailer{client: client, from: from}, nil
}

// Send implements Mailer
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewMsg()
	if err := email.From(m.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := email.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	email.Subject(msg.Subject)
	email.SetBodyString(mail.TypeTextPlain, msg.Body)

	return m.client.DialAndSendWithContext(ctx, email)
}

func otpMessage(account *Account, issued *IssuedOTP) Message {
	subject := "Confirm your account"
	if issued.Purpose == OTPPurposeRecover {
		subject = "Reset your password"
	}

	return Message{
		To:      account.Email,
		Subject: subject,
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour verification code is %s.\nIt expires at %s.\n",
			account.Username,
			issued.Code,
			issued.ExpiresAt.Format(time.RFC1123),
		),
	}
}
