package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt work factor. 12 puts verification in the
// tens-of-milliseconds range on current hardware.
var PasswordHashCost = 12

// HashPassword will generate a salted password hash. bcrypt salts per call,
// so hashing the same password twice yields different digests.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password against
// the stored digest in constant time. Any failure, including a malformed
// stored digest, reports as a credential mismatch rather than an error the
// caller has to distinguish.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
