package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAccountApprovalGate(t *testing.T) {
	cases := []struct {
		name      string
		account   Account
		approved  bool
		canSignIn bool
	}{
		{
			name:      "administrator needs no approval",
			account:   Account{Role: RoleAdministrator, IsActive: true},
			approved:  true,
			canSignIn: true,
		},
		{
			name:      "approved contributor",
			account:   Account{Role: RoleContributor, IsActive: true, Approved: true},
			approved:  true,
			canSignIn: true,
		},
		{
			name:      "pending contributor",
			account:   Account{Role: RoleContributor, IsActive: true},
			approved:  false,
			canSignIn: false,
		},
		{
			name:      "unconfirmed administrator",
			account:   Account{Role: RoleAdministrator},
			approved:  true,
			canSignIn: false,
		},
		{
			name:      "unknown role",
			account:   Account{Role: AccountRole(9), IsActive: true, Approved: true},
			approved:  false,
			canSignIn: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.approved, tc.account.IsApprovedRole())
			assert.Equal(t, tc.canSignIn, tc.account.CanSignIn())
		})
	}
}

func TestAccountHelpers(t *testing.T) {
	acc := &Account{FirstName: "Ada", LastName: "Lovelace", Role: RoleAdministrator}
	assert.Equal(t, "Ada Lovelace", acc.DisplayName())
	assert.True(t, acc.IsAdministrator())
	assert.False(t, acc.HasOTP())

	acc.LastName = ""
	assert.Equal(t, "Ada", acc.DisplayName())

	code := "123456"
	now := time.Now()
	acc.OTP = &code
	assert.False(t, acc.HasOTP(), "a code without issue time is not a stored code")

	acc.OTPCreatedAt = &now
	assert.True(t, acc.HasOTP())
}

func TestOTPPurposeIsValid(t *testing.T) {
	assert.True(t, OTPPurposeConfirm.IsValid())
	assert.True(t, OTPPurposeRecover.IsValid())
	assert.False(t, OTPPurpose("").IsValid())
	assert.False(t, OTPPurpose("reset").IsValid())
}

func TestSanitizeContent(t *testing.T) {
	in := map[string]any{
		"title":      "How do I test?",
		"id":         "spoofed",
		"ID":         "spoofed",
		"created_by": "someone-else",
		"created_at": "1999-01-01",
	}

	out := sanitizeContent(in)

	assert.Equal(t, map[string]any{"title": "How do I test?"}, out)
	assert.Len(t, in, 5, "input must not be modified")

	assert.NotNil(t, sanitizeContent(nil))
}

func TestPostDocumentOverridesReservedFields(t *testing.T) {
	owner := uuid.New()
	at := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	post := &Post{
		PublicID:  "ada-1738404000000-x1y",
		CreatedBy: owner,
		CreatedAt: at,
		Content:   map[string]any{"title": "hello", "created_by": "spoofed"},
	}

	doc := post.Document()
	assert.Equal(t, "hello", doc["title"])
	assert.Equal(t, "ada-1738404000000-x1y", doc["id"])
	assert.Equal(t, owner.String(), doc["created_by"])
	assert.Equal(t, at, doc["created_at"])
	assert.Equal(t, "spoofed", post.Content["created_by"], "stored content is left alone")

	comment := &Comment{ID: uuid.New(), CreatedBy: owner, CreatedAt: at}
	cdoc := comment.Document()
	assert.Equal(t, comment.ID.String(), cdoc["id"])
	assert.Equal(t, owner.String(), cdoc["created_by"])
}
