package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
)

// UserResolverStore is the slice of the user store the resolver needs.
type UserResolverStore interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*User, error)
}

// SessionResolver turns a raw token into a live, store-verified identity.
// Verifying the signature is not enough: the subject must still exist, be
// approved, and must not have changed their password after the token was
// issued.
type SessionResolver struct {
	tokens TokenService
	users  UserResolverStore
	logger Logger
}

func NewSessionResolver(tokens TokenService, users UserResolverStore) *SessionResolver {
	return &SessionResolver{
		tokens: tokens,
		users:  users,
		logger: defLogger{},
	}
}

func (r *SessionResolver) WithLogger(logger Logger) *SessionResolver {
	r.logger = logger
	return r
}

// Resolve validates the raw token and re-checks its subject against the
// store. The returned identity carries the store's current role and status,
// never the token's: a demotion takes effect on the next request.
func (r *SessionResolver) Resolve(ctx context.Context, raw string) (Identity, error) {
	identity, _, err := r.ResolveClaims(ctx, raw)
	return identity, err
}

// ResolveClaims is Resolve plus the decoded claims, for callers that need
// the session metadata too.
func (r *SessionResolver) ResolveClaims(ctx context.Context, raw string) (Identity, AuthClaims, error) {
	if raw == "" {
		return nil, nil, ErrMissingToken
	}

	claims, err := r.tokens.Validate(raw)
	if err != nil {
		return nil, nil, err
	}

	if claims.UserID() == "" || claims.Role() == "" {
		return nil, nil, ErrMalformedClaim
	}

	user, err := r.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil, ErrUserNotFound
		}
		r.logger.Error("session resolve user lookup failed", "error", err)
		return nil, nil, err
	}

	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	user.EnsureStatus()
	if err := statusAuthError(user.Status); err != nil {
		return nil, nil, err
	}

	// Tokens minted before the last password change are revoked. Compare at
	// second precision since iat carries no sub-second component.
	if user.PasswordChangedAt != nil && !claims.IssuedAt().IsZero() {
		if claims.IssuedAt().Unix() < user.PasswordChangedAt.Unix() {
			return nil, nil, ErrPasswordChanged
		}
	}

	return identityFromUser(user), claims, nil
}
