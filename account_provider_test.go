package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-postauth"
)

func TestVerifyIdentityCheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedAccount(t, seed{email: "unconfirmed@example.com", role: auth.RoleContributor, approved: true})
	f.seedAccount(t, seed{email: "pending@example.com", role: auth.RoleContributor, active: true})
	f.seedAccount(t, seed{email: "ready@example.com", role: auth.RoleContributor, active: true, approved: true})
	f.seedAccount(t, seed{email: "boss@example.com", role: auth.RoleAdministrator, active: true})
	f.seedAccount(t, seed{email: "twin@example.com", active: true, approved: true})
	f.seedAccount(t, seed{email: "twin@example.com", active: true, approved: true})

	provider := auth.NewAccountProvider(f.repo.Accounts(), f.hasher).WithLogger(&captureLogger{})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"unknown email", "nobody@example.com", testPassword, auth.ErrWrongEmail},
		{"unconfirmed is checked before password", "unconfirmed@example.com", "wrong-password", auth.ErrUnconfirmedEmail},
		{"disapproved is checked before password", "pending@example.com", "wrong-password", auth.ErrDisapprovedAccount},
		{"wrong password", "ready@example.com", "wrong-password", auth.ErrWrongPassword},
		{"duplicate email", "twin@example.com", testPassword, auth.ErrDuplicateAccount},
		{"approved contributor", "ready@example.com", testPassword, nil},
		{"administrator without approval flag", "boss@example.com", testPassword, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := provider.VerifyIdentity(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, acc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, acc.Email)
		})
	}
}
