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

func newResolverFixture(t *testing.T, user *auth.User) (*auth.SessionResolver, string) {
	t.Helper()

	ts := newTestTokenService(24)
	store := &fakeResolverStore{users: map[string]*auth.User{}}
	if user != nil {
		store.users[user.ID.String()] = user
	}

	identity := testIdentity{
		id:     user.ID.String(),
		email:  user.Email,
		role:   user.Role,
		status: user.Status,
	}

	token, err := ts.Generate(identity)
	require.NoError(t, err)

	return auth.NewSessionResolver(ts, store), token
}

func approvedUser() *auth.User {
	return &auth.User{
		ID:     uuid.New(),
		Email:  "marie@example.com",
		Role:   auth.RoleBenevole,
		Status: auth.UserStatusApproved,
	}
}

func TestSessionResolverResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token", func(t *testing.T) {
		resolver, _ := newResolverFixture(t, approvedUser())
		_, err := resolver.Resolve(ctx, "")
		assert.ErrorIs(t, err, auth.ErrMissingToken)
	})

	t.Run("approved user resolves", func(t *testing.T) {
		user := approvedUser()
		resolver, token := newResolverFixture(t, user)

		identity, err := resolver.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, auth.RoleBenevole, identity.Role())
		assert.Equal(t, auth.UserStatusApproved, identity.Status())
	})

	t.Run("identity carries the store role, not the token role", func(t *testing.T) {
		user := approvedUser()
		user.Role = auth.RoleAdmin
		resolver, token := newResolverFixture(t, user)

		// demote after the token was issued
		user.Role = auth.RoleBenevole

		identity, err := resolver.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleBenevole, identity.Role())
	})

	t.Run("subject no longer exists", func(t *testing.T) {
		user := approvedUser()
		ts := newTestTokenService(24)
		token, err := ts.Generate(testIdentity{
			id:     user.ID.String(),
			role:   user.Role,
			status: user.Status,
		})
		require.NoError(t, err)

		resolver := auth.NewSessionResolver(ts, &fakeResolverStore{users: map[string]*auth.User{}})
		_, err = resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("pending account is blocked", func(t *testing.T) {
		user := approvedUser()
		user.Status = auth.UserStatusPending
		resolver, token := newResolverFixture(t, user)

		_, err := resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrAccountPending)
	})

	t.Run("suspended account is blocked", func(t *testing.T) {
		user := approvedUser()
		user.Status = auth.UserStatusSuspended
		resolver, token := newResolverFixture(t, user)

		_, err := resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrAccountSuspended)
	})

	t.Run("banned account is blocked", func(t *testing.T) {
		user := approvedUser()
		user.Status = auth.UserStatusBanned
		resolver, token := newResolverFixture(t, user)

		_, err := resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrAccountBanned)
	})

	t.Run("token issued before password change is revoked", func(t *testing.T) {
		user := approvedUser()
		resolver, token := newResolverFixture(t, user)

		changed := time.Now().Add(time.Hour)
		user.PasswordChangedAt = &changed

		_, err := resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrPasswordChanged)
	})

	t.Run("token issued after password change stays valid", func(t *testing.T) {
		user := approvedUser()
		changed := time.Now().Add(-time.Hour)
		user.PasswordChangedAt = &changed
		resolver, token := newResolverFixture(t, user)

		_, err := resolver.Resolve(ctx, token)
		assert.NoError(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		user := approvedUser()
		ts := newTestTokenService(-1)
		token, err := ts.Generate(testIdentity{
			id:     user.ID.String(),
			role:   user.Role,
			status: user.Status,
		})
		require.NoError(t, err)

		resolver := auth.NewSessionResolver(
			newTestTokenService(24),
			&fakeResolverStore{users: map[string]*auth.User{user.ID.String(): user}},
		)
		_, err = resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("garbage token", func(t *testing.T) {
		resolver, _ := newResolverFixture(t, approvedUser())
		_, err := resolver.Resolve(ctx, "garbage.token.value")
		assert.True(t, auth.IsMalformedError(err))
	})
}

func TestSessionResolverResolveClaims(t *testing.T) {
	user := approvedUser()
	resolver, token := newResolverFixture(t, user)

	identity, claims, err := resolver.ResolveClaims(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, user.ID.String(), claims.UserID())
	assert.Equal(t, auth.RoleBenevole, claims.Role())
}
