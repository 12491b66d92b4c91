package auth_test

import (
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	"github.com/entraidehub/go-auth"
)

// Clients and stored activity logs key off these codes, they must not drift.
func TestStableTextCodes(t *testing.T) {
	assert.Equal(t, "AUTH_MISSING_TOKEN", auth.TextCodeMissingToken)
	assert.Equal(t, "AUTH_TOKEN_EXPIRED", auth.TextCodeTokenExpired)
	assert.Equal(t, "AUTH_MALFORMED_TOKEN", auth.TextCodeTokenMalformed)
	assert.Equal(t, "AUTH_USER_NOT_FOUND", auth.TextCodeUserNotFound)
	assert.Equal(t, "AUTH_ACCOUNT_PENDING", auth.TextCodeAccountPending)
	assert.Equal(t, "AUTH_PASSWORD_CHANGED", auth.TextCodePasswordChanged)
	assert.Equal(t, "AUTH_INSUFFICIENT_PERMISSIONS", auth.TextCodeInsufficientPermissions)
	assert.Equal(t, "INVALID_CREDENTIALS", auth.TextCodeInvalidCredentials)
	assert.Equal(t, "EMAIL_ALREADY_EXISTS", auth.TextCodeEmailTaken)
	assert.Equal(t, "INVALID_TOKEN", auth.TextCodeResetTicketInvalid)
	assert.Equal(t, "PASSWORD_TOO_SHORT", auth.TextCodePasswordTooShort)
}

func TestHasTextCode(t *testing.T) {
	assert.True(t, auth.HasTextCode(auth.ErrTokenExpired, auth.TextCodeTokenExpired))
	assert.False(t, auth.HasTextCode(auth.ErrTokenExpired, auth.TextCodeMissingToken))

	cloned := auth.ErrInvalidRole.Clone().WithMetadata(map[string]any{"role": "superuser"})
	assert.True(t, auth.HasTextCode(cloned, auth.TextCodeInvalidRole))

	assert.False(t, auth.HasTextCode(fmt.Errorf("plain error"), auth.TextCodeTokenExpired))
	assert.False(t, auth.HasTextCode(nil, auth.TextCodeTokenExpired))
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.True(t, auth.IsTokenExpiredError(auth.ErrTokenExpired))
	assert.False(t, auth.IsTokenExpiredError(auth.ErrTokenMalformed))
	assert.False(t, auth.IsTokenExpiredError(nil))
}

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing token", auth.ErrMissingToken, http.StatusUnauthorized},
		{"expired token", auth.ErrTokenExpired, http.StatusUnauthorized},
		{"pending account", auth.ErrAccountPending, http.StatusForbidden},
		{"insufficient permissions", auth.ErrInsufficientPermissions, http.StatusForbidden},
		{"user not found", auth.ErrUserNotFound, http.StatusUnauthorized},
		{"email taken", auth.ErrEmailTaken, http.StatusConflict},
		{"password too short", auth.ErrPasswordTooShort, http.StatusBadRequest},
		{"too many attempts", auth.ErrTooManyLoginAttempts, http.StatusTooManyRequests},
		{"reset ticket invalid", auth.ErrResetTicketInvalid, http.StatusUnauthorized},
		{"plain error wraps to 500", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, auth.HTTPStatusFromError(tc.err))
		})
	}
}

func TestHTTPStatusPrefersExplicitCode(t *testing.T) {
	err := goerrors.New("gone away", goerrors.CategoryInternal).WithCode(http.StatusGone)
	assert.Equal(t, http.StatusGone, auth.HTTPStatusFromError(err))
}
