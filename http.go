package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/entraidehub/go-auth/middleware/sessionware"
)

// LoginPayload is what the HTTP login surface needs from a request body.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

// HTTPAuthenticator is the surface the auth controller drives.
type HTTPAuthenticator interface {
	Login(ctx router.Context, payload LoginPayload) (string, error)
	Logout(ctx router.Context)
	Impersonate(c router.Context, identifier string) (string, error)
	Refresh(ctx router.Context) (string, error)
	ProtectedRoute(allowed ...UserRole) router.MiddlewareFunc
	CurrentIdentity(ctx router.Context) (Identity, error)
}

type RouteAuthenticator struct {
	auth                   Authenticator
	resolver               *SessionResolver
	cfg                    Config
	cookieDuration         time.Duration
	extendedCookieDuration time.Duration
	Logger                 Logger
	ErrorHandler           func(c router.Context, err error) error
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

func NewHTTPAuthenticator(auther Authenticator, resolver *SessionResolver, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	extendedCookieDuration := cookieDuration
	if cfg.GetExtendedTokenDuration() > 0 {
		extendedCookieDuration = time.Duration(cfg.GetExtendedTokenDuration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:                    cfg,
		auth:                   auther,
		resolver:               resolver,
		Logger:                 defLogger{},
		cookieDuration:         cookieDuration,
		extendedCookieDuration: extendedCookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a RouteAuthenticator) GetExtendedCookieDuration() time.Duration {
	return a.extendedCookieDuration
}

// ProtectedRoute guards a route behind a resolved session, optionally gated
// to an allowed role set. The middleware re-checks the token's subject
// against the store on every request.
func (a *RouteAuthenticator) ProtectedRoute(allowed ...UserRole) router.MiddlewareFunc {
	return sessionware.New(sessionware.Config{
		ErrorHandler: a.ErrorHandler,
		Resolver:     resolverAdapter{a.resolver},
		ContextKey:   a.cfg.GetContextKey(),
		TokenLookup:  a.cfg.GetTokenLookup(),
		AuthScheme:   a.cfg.GetAuthScheme(),
		AllowedRoles: allowed,
		Authorizer: func(identity sessionware.Identity, roles []string) error {
			if identity == nil {
				return ErrNotAuthenticated
			}
			for _, role := range roles {
				if identity.Role() == role {
					return nil
				}
			}
			return ErrInsufficientPermissions.Clone().WithMetadata(map[string]any{
				"user_role":      identity.Role(),
				"required_roles": roles,
			})
		},
		ContextEnricher: func(c context.Context, identity sessionware.Identity, claims sessionware.AuthClaims) context.Context {
			if id, ok := identity.(Identity); ok {
				c = WithIdentityContext(c, id)
			}
			if ac, ok := claims.(AuthClaims); ok {
				c = WithClaimsContext(c, ac)
			}
			return c
		},
	})
}

// Login verifies credentials, sets the session cookie, and returns the token
// so JSON clients can also carry it as a bearer header.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (string, error) {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return "", err
	}

	duration := a.cookieDuration
	if payload.GetExtendedSession() {
		duration = a.extendedCookieDuration
	}

	a.setCookieToken(ctx, token, duration)
	return token, nil
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

func (a *RouteAuthenticator) Impersonate(c router.Context, identifier string) (string, error) {
	token, err := a.auth.Impersonate(c.Context(), identifier)
	if err != nil {
		a.Logger.Error("Impersonate authentication error", "error", err)
		return "", err
	}

	a.setCookieToken(c, token, a.cookieDuration)
	return token, nil
}

// Refresh re-verifies the current session and replaces it with a fresh token.
func (a *RouteAuthenticator) Refresh(ctx router.Context) (string, error) {
	raw := a.rawToken(ctx)
	if raw == "" {
		return "", ErrMissingToken
	}

	session, err := a.auth.SessionFromToken(raw)
	if err != nil {
		return "", err
	}

	token, err := a.auth.RefreshSession(ctx.Context(), session)
	if err != nil {
		return "", err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return token, nil
}

// CurrentIdentity resolves the request's session against the store.
func (a *RouteAuthenticator) CurrentIdentity(ctx router.Context) (Identity, error) {
	if identity, ok := GetRouterIdentity(ctx, ""); ok {
		return identity, nil
	}
	return a.resolver.Resolve(ctx.Context(), a.rawToken(ctx))
}

func (a *RouteAuthenticator) rawToken(ctx router.Context) string {
	extractors := sessionware.GetExtractors(a.cfg.GetTokenLookup(), a.cfg.GetAuthScheme())
	return sessionware.ExtractRawTokenFromContext(ctx, extractors)
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	richErr := asRichError(err)

	a.Logger.Info(
		"Auth middleware error handler",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
		"path", c.OriginalURL(),
	)

	return WriteJSONError(c, richErr)
}

// resolverAdapter bridges the auth package's resolver to middleware-local
// interfaces without an import cycle.
type resolverAdapter struct {
	resolver *SessionResolver
}

func (r resolverAdapter) ResolveClaims(ctx context.Context, raw string) (sessionware.Identity, sessionware.AuthClaims, error) {
	identity, claims, err := r.resolver.ResolveClaims(ctx, raw)
	if err != nil {
		return nil, nil, err
	}
	return identity, claims, nil
}

// HTTPStatusFromError maps a rich error to its HTTP status. Errors that
// carry an explicit code win; otherwise the category decides.
func HTTPStatusFromError(err error) int {
	richErr := asRichError(err)

	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSONError renders the stable error envelope JSON clients key off.
func WriteJSONError(c router.Context, err error) error {
	richErr := asRichError(err)

	body := map[string]any{
		"status":  "error",
		"message": richErr.Message,
	}

	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	return c.JSON(HTTPStatusFromError(richErr), body)
}

func asRichError(err error) *errors.Error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}

	return errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
		WithCode(errors.CodeInternal)
}
