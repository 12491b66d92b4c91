package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraidehub/go-auth"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes a password", func(t *testing.T) {
		hash, err := auth.HashPassword("s3cret-enough")
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "s3cret-enough", hash)
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		h1, err := auth.HashPassword("s3cret-enough")
		require.NoError(t, err)
		h2, err := auth.HashPassword("s3cret-enough")
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := auth.HashPassword("")
		assert.ErrorIs(t, err, auth.ErrNoEmptyString)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery")
	require.NoError(t, err)

	t.Run("accepts matching password", func(t *testing.T) {
		assert.NoError(t, auth.ComparePasswordAndHash("correct horse battery", hash))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("wrong password", hash)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("malformed digest reads as credential mismatch", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("anything", "not-a-bcrypt-digest")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}
