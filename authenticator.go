package auth

import (
	"context"
	"time"
)

// Auther verifies credentials and mints session tokens
type Auther struct {
	provider     IdentityVerifier
	tokens       TokenIssuer
	logger       Logger
	activitySink ActivitySink
	now          clock
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityVerifier, tokens TokenIssuer) *Auther {
	return &Auther{
		provider:     provider,
		tokens:       tokens,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          systemClock,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClock overrides the clock used to stamp activity events
func (s *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		s.now = now
	}
	return s
}

// TokenService returns the token issuer used by this Authenticator
func (s *Auther) TokenService() TokenIssuer {
	return s.tokens
}

// Login verifies the credentials and returns a signed session token
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	account, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login verify identity error", "email", email, "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return "", err
	}

	token, err := s.tokens.Issue(NewSessionClaims(account))
	if err != nil {
		s.logger.Error("Login failed to issue token", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, accountActor(account), account.ID.String(), map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, accountActor(account), account.ID.String(), map[string]any{
		"email": email,
		"role":  account.Role.String(),
	})

	return token, nil
}

// SessionFromToken validates raw and returns its claims
func (s *Auther) SessionFromToken(raw string) (*SessionClaims, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed", "error", err)
		return nil, err
	}
	return claims, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}
