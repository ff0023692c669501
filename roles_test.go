package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-postauth"
)

func TestAccountRoleCapabilities(t *testing.T) {
	tests := []struct {
		role       auth.AccountRole
		valid      bool
		label      string
		createPost bool
		commentAny bool
		approve    bool
	}{
		{auth.RoleContributor, true, "contributor", true, false, false},
		{auth.RoleAdministrator, true, "administrator", true, true, true},
		{auth.AccountRole(0), false, "unknown(0)", false, false, false},
		{auth.AccountRole(7), false, "unknown(7)", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.IsValid())
			assert.Equal(t, tt.label, tt.role.String())
			assert.Equal(t, tt.createPost, tt.role.CanCreatePost())
			assert.Equal(t, tt.commentAny, tt.role.CanCommentAnywhere())
			assert.Equal(t, tt.approve, tt.role.CanApprove())
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw    string
		role   auth.AccountRole
		wantOK bool
	}{
		{"1", auth.RoleContributor, true},
		{"2", auth.RoleAdministrator, true},
		{"contributor", auth.RoleContributor, true},
		{" Administrator ", auth.RoleAdministrator, true},
		{"3", auth.AccountRole(3), false},
		{"owner", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			role, ok := auth.ParseRole(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.role, role)
		})
	}

	assert.Equal(t, []auth.AccountRole{auth.RoleContributor, auth.RoleAdministrator}, auth.GetAllRoles())
}
