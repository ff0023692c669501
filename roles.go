package auth

import (
	"strconv"
	"strings"
)

// IsValid checks if the role is one of the predefined roles
func (r AccountRole) IsValid() bool {
	switch r {
	case RoleContributor, RoleAdministrator:
		return true
	default:
		return false
	}
}

// String returns the role label
func (r AccountRole) String() string {
	switch r {
	case RoleContributor:
		return "contributor"
	case RoleAdministrator:
		return "administrator"
	default:
		return "unknown(" + strconv.Itoa(int(r)) + ")"
	}
}

// CanCreatePost checks if this role can open new posts
func (r AccountRole) CanCreatePost() bool {
	return r.IsValid()
}

// CanCommentAnywhere checks if this role may comment on posts it does not own
func (r AccountRole) CanCommentAnywhere() bool {
	return r == RoleAdministrator
}

// CanApprove checks if this role may approve contributor accounts
func (r AccountRole) CanApprove() bool {
	return r == RoleAdministrator
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []AccountRole {
	return []AccountRole{
		RoleContributor,
		RoleAdministrator,
	}
}

// ParseRole accepts either the numeric wire tag or the role label
func ParseRole(raw string) (AccountRole, bool) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		role := AccountRole(n)
		return role, role.IsValid()
	}

	for _, role := range GetAllRoles() {
		if role.String() == raw {
			return role, true
		}
	}

	return 0, false
}
