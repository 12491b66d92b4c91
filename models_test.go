package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/entraidehub/go-auth"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "marie@example.com", auth.NormalizeEmail("Marie@Example.COM"))
	assert.Equal(t, "marie@example.com", auth.NormalizeEmail("  marie@example.com \n"))
	assert.Equal(t, "", auth.NormalizeEmail("   "))
}

func TestUserEnsureDefaults(t *testing.T) {
	user := &auth.User{}
	user.EnsureStatus()
	user.EnsureRole()
	assert.Equal(t, auth.UserStatusPending, user.Status)
	assert.Equal(t, auth.RoleBenevole, user.Role)

	user = &auth.User{Role: auth.RoleAdmin, Status: auth.UserStatusBanned}
	user.EnsureStatus()
	user.EnsureRole()
	assert.Equal(t, auth.UserStatusBanned, user.Status)
	assert.Equal(t, auth.RoleAdmin, user.Role)
}

func TestUserHasActiveReset(t *testing.T) {
	user := &auth.User{}
	assert.False(t, user.HasActiveReset())

	expires := time.Now().Add(15 * time.Minute)
	user.PasswordResetTokenHash = "digest"
	user.PasswordResetExpiresAt = &expires
	assert.True(t, user.HasActiveReset())

	user.PasswordResetTokenHash = ""
	assert.False(t, user.HasActiveReset())
}
