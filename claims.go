package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the identity assertion carried by session tokens.
// The registered subject holds the account id.
type SessionClaims struct {
	jwt.RegisteredClaims
	DisplayName string      `json:"name"`
	Username    string      `json:"userName"`
	Email       string      `json:"email"`
	Role        AccountRole `json:"role"`
}

// NewSessionClaims builds claims for acc
func NewSessionClaims(acc *Account) *SessionClaims {
	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: acc.ID.String(),
		},
		DisplayName: acc.DisplayName(),
		Username:    acc.Username,
		Email:       acc.Email,
		Role:        acc.Role,
	}
}

// AccountID parses the subject
func (c *SessionClaims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// IsAdministrator checks the role claim
func (c *SessionClaims) IsAdministrator() bool {
	return c.Role == RoleAdministrator
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
