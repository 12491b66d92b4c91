package sessionware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization
	ErrRoleDenied      = errors.New("insufficient permissions")
)

// Resolver validates a raw token and re-checks its subject against the user
// store. This mirrors the SessionResolver from the auth package without
// creating an import cycle. An empty raw token is the resolver's problem: it
// returns its own tagged missing-token error.
type Resolver interface {
	ResolveClaims(ctx context.Context, raw string) (Identity, AuthClaims, error)
}

// Identity mirrors the Identity interface from the auth package.
type Identity interface {
	ID() string
	Email() string
	Role() string
	Status() string
}

// AuthClaims mirrors the AuthClaims interface from the auth package.
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	HasRole(role string) bool
}

// ValidationListener is invoked after a session has been resolved but before
// authorization checks.
type ValidationListener func(ctx router.Context, identity Identity, claims AuthClaims) error

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// Resolver is required, it performs validation and the store re-check.
	Resolver Resolver

	// ContextKey is the router locals key for the decoded claims.
	ContextKey string
	// IdentityKey is the router locals key for the resolved identity.
	IdentityKey string

	// TokenLookup is an ordered comma-separated extraction list, e.g.
	// "header:Authorization,cookie:token". The first source holding a token
	// wins.
	TokenLookup string
	AuthScheme  string

	// AllowedRoles gates the route to the given role set. Empty means any
	// authenticated identity.
	AllowedRoles []string

	// Authorizer overrides the allowed-roles membership check, letting the
	// caller return richer errors.
	Authorizer func(identity Identity, allowed []string) error

	// ContextEnricher is an optional function to propagate the resolved
	// session to the standard Go context. If provided, it is called after
	// successful resolution.
	ContextEnricher func(c context.Context, identity Identity, claims AuthClaims) context.Context

	// ValidationListeners are invoked after resolution succeeds. Use them to
	// emit events or perform bookkeeping before the request proceeds.
	ValidationListeners []ValidationListener
}

func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw := ExtractRawTokenFromContext(ctx, cfg.getExtractors())

			identity, claims, err := cfg.Resolver.ResolveClaims(ctx.Context(), raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.runValidationListeners(ctx, identity, claims); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if len(cfg.AllowedRoles) > 0 {
				if err := cfg.Authorizer(identity, cfg.AllowedRoles); err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
			}

			ctx.Locals(cfg.ContextKey, claims)
			ctx.Locals(cfg.IdentityKey, identity)

			if cfg.ContextEnricher != nil {
				stdCtx := cfg.ContextEnricher(ctx.Context(), identity, claims)
				ctx.SetContext(stdCtx)
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// ExtractRawTokenFromContext walks the extractors in order and returns the
// first token found. An empty string means no source carried a token.
func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) string {
	for _, extractor := range extractors {
		if raw := extractor(ctx); raw != "" {
			return raw
		}
	}
	return ""
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.Resolver == nil {
		panic("AUTH: session middleware configuration: Resolver is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.IdentityKey == "" {
		cfg.IdentityKey = "identity"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.Authorizer == nil {
		cfg.Authorizer = defaultAuthorizer
	}

	return cfg
}

func defaultAuthorizer(identity Identity, allowed []string) error {
	if identity == nil {
		return ErrRoleDenied
	}
	for _, role := range allowed {
		if identity.Role() == role {
			return nil
		}
	}
	return ErrRoleDenied
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, identity Identity, claims AuthClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, identity, claims); err != nil {
			return err
		}
	}
	return nil
}

func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:token,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		// header:Authorization
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) < 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

type TokenExtractor func(c router.Context) string

// tokenFromHeader returns a function that extracts a token from the request header.
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(c router.Context) string {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			fmt.Println("[WARNING] Missing auth scheme in config definition")
			return ""
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:])
		}
		return ""
	}
}

// tokenFromQuery returns a function that extracts a token from the query string.
func tokenFromQuery(param string) TokenExtractor {
	return func(c router.Context) string {
		return c.Query(param, "")
	}
}

// tokenFromParam returns a function that extracts a token from the url param string.
func tokenFromParam(param string) TokenExtractor {
	return func(c router.Context) string {
		return c.Param(param)
	}
}

// tokenFromCookie returns a function that extracts a token from the named cookie.
func tokenFromCookie(name string) TokenExtractor {
	return func(c router.Context) string {
		return c.Cookies(name)
	}
}
