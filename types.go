package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the logging surface used by every component. Args are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PasswordHasher is the hashing gate: one way password derivation and
// verification.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// IdentityVerifier checks a login attempt and returns the matching account
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, email, password string) (*Account, error)
}

// TokenIssuer mints and validates signed session tokens
type TokenIssuer interface {
	Issue(claims *SessionClaims) (string, error)
	Validate(token string) (*SessionClaims, error)
}

// Mailer is the delivery collaborator used to transport OTP codes
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// CodeGenerator produces short random codes
type CodeGenerator interface {
	Generate() (string, error)
}

type clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Printf("[DBG] AUTH %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Printf("[INF] AUTH %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Printf("[WRN] AUTH %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Printf("[ERR] AUTH %s%s\n", msg, formatArgs(args))
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	return b.String()
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
