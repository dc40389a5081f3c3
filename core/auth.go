package core

import (
	"fmt"
	"time"
)

const (
	// AccessTokenTTL is the fixed lifetime of an access token
	AccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTTL is used when no refresh lifetime is configured
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenKind discriminates access tokens from refresh tokens
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Valid reports whether k is a known token kind
func (k TokenKind) Valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// Claims is the verified content of a token
type Claims struct {
	TokenID   string    // Unique token identifier (jti)
	Subject   string    // Identity ID the token is bound to
	Kind      TokenKind // access or refresh
	Email     string    // Only set on access tokens
	Role      Role      // Only set on access tokens
	IssuedAt  time.Time // When the token was minted
	ExpiresAt time.Time // When the token stops being valid
}

// Principal returns the identity carried by an access token
func (c *Claims) Principal() Principal {
	return Principal{
		ID:    c.Subject,
		Email: c.Email,
		Role:  c.Role,
	}
}

// IssuedToken is a signed token ready to hand to a client
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// TokenPair groups the tokens returned by register, login and refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// AuthResult is returned by register and login
type AuthResult struct {
	Profile   Profile
	Tokens    TokenPair
	ExpiresIn string
}

// FormatTTL renders a duration the way clients expect it, e.g. "15m" or "7d"
func FormatTTL(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
