package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Stable machine-readable text codes surfaced to API clients. These are part
// of the wire contract, do not rename.
const (
	TextCodeMissingToken            = "AUTH_MISSING_TOKEN"
	TextCodeTokenExpired            = "AUTH_TOKEN_EXPIRED"
	TextCodeTokenMalformed          = "AUTH_MALFORMED_TOKEN"
	TextCodeTokenInvalid            = "AUTH_INVALID_TOKEN"
	TextCodeUserNotFound            = "AUTH_USER_NOT_FOUND"
	TextCodeAccountPending          = "AUTH_ACCOUNT_PENDING"
	TextCodeAccountSuspended        = "AUTH_ACCOUNT_SUSPENDED"
	TextCodeAccountBanned           = "AUTH_ACCOUNT_BANNED"
	TextCodePasswordChanged         = "AUTH_PASSWORD_CHANGED"
	TextCodeMissingUser             = "AUTH_MISSING_USER"
	TextCodeInsufficientPermissions = "AUTH_INSUFFICIENT_PERMISSIONS"
	TextCodeNotOwner                = "AUTH_NOT_OWNER"
	TextCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	TextCodeEmailTaken              = "EMAIL_ALREADY_EXISTS"
	TextCodeResetTicketInvalid      = "INVALID_TOKEN"
	TextCodePasswordTooShort        = "PASSWORD_TOO_SHORT"
	TextCodeInvalidRole             = "INVALID_ROLE"
	TextCodeInvalidStatus           = "INVALID_STATUS"
	TextCodeTooManyAttempts         = "TOO_MANY_LOGIN_ATTEMPTS"
)

// ErrMissingToken is returned when neither the authorization header nor the
// session cookie carries a token.
var ErrMissingToken = goerrors.New("authentication token missing", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for structurally valid tokens past their exp claim.
var ErrTokenExpired = goerrors.New("session expired, please sign in again", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that cannot be parsed.
var ErrTokenMalformed = goerrors.New("authentication token is corrupt or malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid is returned for tokens whose signature does not verify.
var ErrTokenInvalid = goerrors.New("authentication token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrMalformedClaim is returned when a verified token lacks the subject or
// role claims every session token must carry.
var ErrMalformedClaim = goerrors.New("authentication token is missing required claims", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserNotFound is returned when the token's subject no longer exists.
var ErrUserNotFound = goerrors.New("user associated with this token no longer exists", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountPending blocks sessions for accounts awaiting admin review.
var ErrAccountPending = goerrors.New("account is pending review", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountPending).
	WithCode(goerrors.CodeForbidden)

// ErrAccountSuspended blocks sessions for suspended accounts.
var ErrAccountSuspended = goerrors.New("account is suspended", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(goerrors.CodeForbidden)

// ErrAccountBanned blocks sessions for banned accounts.
var ErrAccountBanned = goerrors.New("account is banned", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountBanned).
	WithCode(goerrors.CodeForbidden)

// ErrPasswordChanged invalidates tokens issued before the subject's last
// password change. Stateless revocation: no token list, just a timestamp.
var ErrPasswordChanged = goerrors.New("password changed since this token was issued, please sign in again", goerrors.CategoryAuth).
	WithTextCode(TextCodePasswordChanged).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotAuthenticated is the Access Gate's failure for a missing identity,
// distinct from a role mismatch.
var ErrNotAuthenticated = goerrors.New("you must be signed in to access this resource", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingUser).
	WithCode(goerrors.CodeUnauthorized)

// ErrInsufficientPermissions is the Access Gate's role-mismatch denial.
var ErrInsufficientPermissions = goerrors.New("insufficient permissions", goerrors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientPermissions).
	WithCode(goerrors.CodeForbidden)

// ErrNotOwner denies access to a resource owned by someone else.
var ErrNotOwner = goerrors.New("you are not the owner of this resource", goerrors.CategoryAuthz).
	WithTextCode(TextCodeNotOwner).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidCredentials is returned for a wrong password or an unknown login
// identifier. Same message for both so login does not leak which emails exist.
var ErrInvalidCredentials = goerrors.New("incorrect email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken is returned when registering with an already used email.
var ErrEmailTaken = goerrors.New("this email is already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrResetTicketInvalid is returned when the presented reset secret does not
// match the stored digest. The stored ticket stays consumable until expiry.
var ErrResetTicketInvalid = goerrors.New("password reset token is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeResetTicketInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrResetTicketExpired is returned when a reset ticket is presented past its
// expiry; the reset fields are cleared as part of the failure.
var ErrResetTicketExpired = goerrors.New("password reset token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeResetTicketInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrPasswordTooShort is returned when a new password fails the minimum policy.
var ErrPasswordTooShort = goerrors.New("password does not meet the minimum length", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordTooShort).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidRole is returned on any write with a role outside the closed set.
var ErrInvalidRole = goerrors.New("unknown or invalid role", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidStatus is returned on any write with a status outside the closed set.
var ErrInvalidStatus = goerrors.New("unknown or invalid status", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidStatus).
	WithCode(goerrors.CodeBadRequest)

// ErrTooManyLoginAttempts is returned while a cooldown window is in effect.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrNoEmptyString rejects hashing an empty password.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// statusAuthError maps a non-approved account status to its tagged failure.
// Returns nil for approved accounts.
func statusAuthError(status UserStatus) error {
	switch status {
	case UserStatusApproved:
		return nil
	case UserStatusSuspended:
		return ErrAccountSuspended
	case UserStatusBanned:
		return ErrAccountBanned
	default:
		// pending, and anything unknown, reads as not yet approved
		return ErrAccountPending
	}
}

// HasTextCode reports whether err carries the given stable text code.
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
