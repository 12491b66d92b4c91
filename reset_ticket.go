package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/goliatone/go-errors"
)

// ResetTicket is a one-time password-reset capability. The plaintext Secret
// is returned to the caller exactly once for out-of-band delivery; only the
// Digest and expiry are ever persisted.
type ResetTicket struct {
	Secret    string
	Digest    string
	ExpiresAt time.Time
}

// NewResetTicket generates a reset ticket with 256 bits of entropy. The
// secret is base64url encoded, the stored digest is its hex SHA-256.
func NewResetTicket(ttl time.Duration) (ResetTicket, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ResetTicket{}, errors.Wrap(err, errors.CategoryInternal, "failed to generate reset secret")
	}

	secret := base64.RawURLEncoding.EncodeToString(buf)

	return ResetTicket{
		Secret:    secret,
		Digest:    DigestResetSecret(secret),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// DigestResetSecret derives the storable digest for a plaintext reset secret.
func DigestResetSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// MatchResetDigest compares a plaintext secret against a stored digest in
// constant time.
func MatchResetDigest(secret, storedDigest string) bool {
	digest := DigestResetSecret(secret)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(storedDigest)) == 1
}
