package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraidehub/go-auth"
)

func TestNewResetTicket(t *testing.T) {
	ticket, err := auth.NewResetTicket(15 * time.Minute)
	require.NoError(t, err)

	t.Run("secret and digest are populated", func(t *testing.T) {
		assert.NotEmpty(t, ticket.Secret)
		assert.NotEmpty(t, ticket.Digest)
		assert.NotEqual(t, ticket.Secret, ticket.Digest)
	})

	t.Run("digest is derived from the secret", func(t *testing.T) {
		assert.Equal(t, auth.DigestResetSecret(ticket.Secret), ticket.Digest)
	})

	t.Run("expiry honors the ttl", func(t *testing.T) {
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), ticket.ExpiresAt, 5*time.Second)
	})

	t.Run("tickets are unique", func(t *testing.T) {
		other, err := auth.NewResetTicket(15 * time.Minute)
		require.NoError(t, err)
		assert.NotEqual(t, ticket.Secret, other.Secret)
		assert.NotEqual(t, ticket.Digest, other.Digest)
	})
}

func TestMatchResetDigest(t *testing.T) {
	ticket, err := auth.NewResetTicket(time.Minute)
	require.NoError(t, err)

	assert.True(t, auth.MatchResetDigest(ticket.Secret, ticket.Digest))
	assert.False(t, auth.MatchResetDigest("some-other-secret", ticket.Digest))
	assert.False(t, auth.MatchResetDigest(ticket.Secret, "deadbeef"))
}
