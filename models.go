package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountRole is the persisted numeric role tag
type AccountRole int

const (
	// RoleContributor may sign in once an administrator approves the account
	RoleContributor AccountRole = 1
	// RoleAdministrator may sign in once confirmed and comment anywhere
	RoleAdministrator AccountRole = 2
)

// OTPPurpose tags what an issued code may be used for
type OTPPurpose string

const (
	// OTPPurposeConfirm codes activate an unconfirmed account
	OTPPurposeConfirm OTPPurpose = "confirm"
	// OTPPurposeRecover codes authorize an unauthenticated password reset
	OTPPurposeRecover OTPPurpose = "recover"
)

// IsValid reports whether p is a known purpose
func (p OTPPurpose) IsValid() bool {
	switch p {
	case OTPPurposeConfirm, OTPPurposeRecover:
		return true
	default:
		return false
	}
}

// Account is the user document. OTP, OTPCreatedAt and OTPPurpose are always
// written together: either all set or all null.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID   `bun:"id,pk,type:uuid" json:"id"`
	Email         string      `bun:"email,notnull" json:"email"`
	Username      string      `bun:"username,notnull" json:"username"`
	FirstName     string      `bun:"first_name" json:"first_name,omitempty"`
	LastName      string      `bun:"last_name" json:"last_name,omitempty"`
	PasswordHash  string      `bun:"password_hash,notnull" json:"-"`
	Role          AccountRole `bun:"role,notnull" json:"role"`
	IsActive      bool        `bun:"is_active,notnull" json:"is_active"`
	Approved      bool        `bun:"approved,notnull" json:"approved"`
	OTP           *string     `bun:"otp" json:"-"`
	OTPCreatedAt  *time.Time  `bun:"otp_created_at" json:"-"`
	OTPPurpose    OTPPurpose  `bun:"otp_purpose,nullzero" json:"-"`
	CreatedAt     time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time   `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// DisplayName joins first and last name
func (a *Account) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// IsAdministrator reports whether the account carries the administrator role
func (a *Account) IsAdministrator() bool {
	return a.Role == RoleAdministrator
}

// IsApprovedRole reports whether the role/approval gate lets the account in:
// administrators always, contributors only once approved.
func (a *Account) IsApprovedRole() bool {
	switch a.Role {
	case RoleAdministrator:
		return true
	case RoleContributor:
		return a.Approved
	default:
		return false
	}
}

// CanSignIn reports whether the account is queryable for login
func (a *Account) CanSignIn() bool {
	return a.IsActive && a.IsApprovedRole()
}

// HasOTP reports whether a code is currently stored
func (a *Account) HasOTP() bool {
	return a.OTP != nil && a.OTPCreatedAt != nil
}

// Post is a question document. Only CreatedBy and CreatedAt carry meaning
// here; Content passes through untouched.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:pst"`
	ID            uuid.UUID      `bun:"id,pk,type:uuid" json:"-"`
	PublicID      string         `bun:"public_id,notnull" json:"id"`
	CreatedBy     uuid.UUID      `bun:"created_by,type:uuid,notnull" json:"created_by"`
	CreatedAt     time.Time      `bun:"created_at,notnull" json:"created_at"`
	Content       map[string]any `bun:"content" json:"content,omitempty"`
}

// Document flattens the post into the shape clients submitted, with the
// server controlled fields stamped on top.
func (p *Post) Document() map[string]any {
	out := cloneContent(p.Content)
	out["id"] = p.PublicID
	out["created_by"] = p.CreatedBy.String()
	out["created_at"] = p.CreatedAt
	return out
}

// Comment lives in the comments sub collection of a post
type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:cmt"`
	ID            uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	PostID        uuid.UUID      `bun:"post_id,type:uuid,notnull" json:"-"`
	CreatedBy     uuid.UUID      `bun:"created_by,type:uuid,notnull" json:"created_by"`
	CreatedAt     time.Time      `bun:"created_at,notnull" json:"created_at"`
	Content       map[string]any `bun:"content" json:"content,omitempty"`
}

// Document flattens the comment the same way Post.Document does
func (c *Comment) Document() map[string]any {
	out := cloneContent(c.Content)
	out["id"] = c.ID.String()
	out["created_by"] = c.CreatedBy.String()
	out["created_at"] = c.CreatedAt
	return out
}

var reservedContentKeys = []string{"id", "ID", "created_by", "created_at"}

// sanitizeContent drops the fields the server owns so client input can
// never set them.
func sanitizeContent(in map[string]any) map[string]any {
	out := cloneContent(in)
	for _, key := range reservedContentKeys {
		delete(out, key)
	}
	return out
}

func cloneContent(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+3)
	for k, v := range in {
		out[k] = v
	}
	return out
}
