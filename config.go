package auth

import "time"

const (
	// DefaultResetTicketTTL bounds how long a password reset ticket stays
	// consumable.
	DefaultResetTicketTTL = 15 * time.Minute

	// DefaultMinPasswordLength is the minimum accepted password length.
	DefaultMinPasswordLength = 6
)

// SimpleConfig is a literal Config implementation for wiring and tests.
// Zero values fall back to the defaults documented per field.
type SimpleConfig struct {
	// SigningKey is the HMAC secret for session tokens. Injected here, never
	// read from ambient globals; rotating it invalidates outstanding sessions.
	SigningKey    string
	SigningMethod string
	// ContextKey is the router locals key and the session cookie name.
	ContextKey string
	// TokenExpiration is the session TTL in hours, default 24.
	TokenExpiration int
	// ExtendedTokenDuration is the "remember me" TTL in hours.
	ExtendedTokenDuration int
	// TokenLookup is the ordered extraction list, e.g.
	// "header:Authorization,cookie:token". Header wins over cookie.
	TokenLookup string
	AuthScheme  string
	Issuer      string
	Audience    []string
	// ResetTokenExpiration bounds reset tickets, default 15 minutes.
	ResetTokenExpiration time.Duration
	// MinPasswordLength is the reset/registration password policy, default 6.
	MinPasswordLength int
}

var _ Config = SimpleConfig{}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c SimpleConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return "HS256"
	}
	return c.SigningMethod
}

func (c SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "token"
	}
	return c.ContextKey
}

func (c SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return 24
	}
	return c.TokenExpiration
}

func (c SimpleConfig) GetExtendedTokenDuration() int {
	if c.ExtendedTokenDuration <= 0 {
		return c.GetTokenExpiration()
	}
	return c.ExtendedTokenDuration
}

func (c SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "header:Authorization,cookie:" + c.GetContextKey()
	}
	return c.TokenLookup
}

func (c SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetResetTokenExpiration() time.Duration {
	if c.ResetTokenExpiration <= 0 {
		return DefaultResetTicketTTL
	}
	return c.ResetTokenExpiration
}

func (c SimpleConfig) GetMinPasswordLength() int {
	if c.MinPasswordLength <= 0 {
		return DefaultMinPasswordLength
	}
	return c.MinPasswordLength
}
