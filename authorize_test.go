package auth_test

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraidehub/go-auth"
)

func TestAuthorize(t *testing.T) {
	volunteer := testIdentity{id: "u1", role: auth.RoleBenevole, status: auth.UserStatusApproved}
	admin := testIdentity{id: "a1", role: auth.RoleAdmin, status: auth.UserStatusApproved}

	t.Run("nil identity", func(t *testing.T) {
		err := auth.Authorize(nil, auth.RoleAdmin)
		assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	})

	t.Run("empty allowed set admits any identity", func(t *testing.T) {
		assert.NoError(t, auth.Authorize(volunteer))
	})

	t.Run("member of the allowed set", func(t *testing.T) {
		assert.NoError(t, auth.Authorize(volunteer, auth.RoleBenevole, auth.RoleAdmin))
	})

	t.Run("role outside the allowed set", func(t *testing.T) {
		err := auth.Authorize(volunteer, auth.RoleAdmin)
		require.Error(t, err)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInsufficientPermissions))

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, auth.RoleBenevole, richErr.Metadata["user_role"])
	})

	t.Run("admin is not implicitly admitted", func(t *testing.T) {
		// roles are peer groups, admin does not bypass role gates
		err := auth.Authorize(admin, auth.RoleBenevole)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInsufficientPermissions))
	})
}

func TestAuthorizeOwnership(t *testing.T) {
	owner := testIdentity{id: "u1", role: auth.RoleDonateur, status: auth.UserStatusApproved}
	other := testIdentity{id: "u2", role: auth.RoleDonateur, status: auth.UserStatusApproved}
	admin := testIdentity{id: "a1", role: auth.RoleAdmin, status: auth.UserStatusApproved}

	t.Run("nil identity", func(t *testing.T) {
		assert.ErrorIs(t, auth.AuthorizeOwnership(nil, "u1"), auth.ErrNotAuthenticated)
	})

	t.Run("owner is admitted", func(t *testing.T) {
		assert.NoError(t, auth.AuthorizeOwnership(owner, "u1"))
	})

	t.Run("admin is admitted over any resource", func(t *testing.T) {
		assert.NoError(t, auth.AuthorizeOwnership(admin, "u1"))
	})

	t.Run("non-owner is denied", func(t *testing.T) {
		err := auth.AuthorizeOwnership(other, "u1")
		assert.True(t, auth.HasTextCode(err, auth.TextCodeNotOwner))
	})

	t.Run("empty owner id denies non-admins", func(t *testing.T) {
		err := auth.AuthorizeOwnership(owner, "")
		assert.True(t, auth.HasTextCode(err, auth.TextCodeNotOwner))
	})
}
