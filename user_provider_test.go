package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraidehub/go-auth"
)

func trackerWithUser(t *testing.T, password string) (*fakeUserTracker, *auth.User) {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &auth.User{
		ID:           uuid.New(),
		Email:        "marie@example.com",
		Role:         auth.RoleBenevole,
		Status:       auth.UserStatusApproved,
		PasswordHash: hash,
	}

	return &fakeUserTracker{
		users: map[string]*auth.User{user.Email: user},
	}, user
}

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		tracker, user := trackerWithUser(t, "s3cret-enough")
		provider := auth.NewUserProvider(tracker)

		identity, err := provider.VerifyIdentity(ctx, "marie@example.com", "s3cret-enough")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, auth.RoleBenevole, identity.Role())
		assert.Equal(t, 1, tracker.successfulTracked)
	})

	t.Run("unknown email", func(t *testing.T) {
		tracker, _ := trackerWithUser(t, "s3cret-enough")
		provider := auth.NewUserProvider(tracker)

		_, err := provider.VerifyIdentity(ctx, "nobody@example.com", "s3cret-enough")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("wrong password increments attempts", func(t *testing.T) {
		tracker, user := trackerWithUser(t, "s3cret-enough")
		provider := auth.NewUserProvider(tracker)

		_, err := provider.VerifyIdentity(ctx, "marie@example.com", "wrong")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Equal(t, 1, tracker.attemptedTracked)
		assert.Equal(t, 1, user.LoginAttempts)
	})

	t.Run("too many attempts inside cooldown", func(t *testing.T) {
		tracker, user := trackerWithUser(t, "s3cret-enough")
		now := time.Now()
		user.LoginAttempts = auth.MaxLoginAttempts + 1
		user.LoginAttemptAt = &now

		provider := auth.NewUserProvider(tracker)

		_, err := provider.VerifyIdentity(ctx, "marie@example.com", "s3cret-enough")
		assert.ErrorIs(t, err, auth.ErrTooManyLoginAttempts)
	})

	t.Run("attempt counter resets after the cooldown", func(t *testing.T) {
		tracker, user := trackerWithUser(t, "s3cret-enough")
		stale := time.Now().Add(-48 * time.Hour)
		user.LoginAttempts = auth.MaxLoginAttempts + 1
		user.LoginAttemptAt = &stale

		provider := auth.NewUserProvider(tracker)

		_, err := provider.VerifyIdentity(ctx, "marie@example.com", "s3cret-enough")
		assert.NoError(t, err)
	})
}

func TestUserProviderFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()

	t.Run("existing user", func(t *testing.T) {
		tracker, user := trackerWithUser(t, "s3cret-enough")
		provider := auth.NewUserProvider(tracker)

		identity, err := provider.FindIdentityByIdentifier(ctx, "marie@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, user.Email, identity.Email())
	})

	t.Run("by uuid", func(t *testing.T) {
		tracker, user := trackerWithUser(t, "s3cret-enough")
		provider := auth.NewUserProvider(tracker)

		identity, err := provider.FindIdentityByIdentifier(ctx, user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, user.Email, identity.Email())
	})

	t.Run("unknown user", func(t *testing.T) {
		tracker, _ := trackerWithUser(t, "s3cret-enough")
		provider := auth.NewUserProvider(tracker)

		_, err := provider.FindIdentityByIdentifier(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("invalid role fails validation", func(t *testing.T) {
		tracker, user := trackerWithUser(t, "s3cret-enough")
		user.Role = "superuser"
		provider := auth.NewUserProvider(tracker)

		_, err := provider.FindIdentityByIdentifier(ctx, "marie@example.com")
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidRole))
	})
}
