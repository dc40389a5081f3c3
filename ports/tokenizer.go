package ports

import "github.com/Gladiston-Porto/Trading-APP-sub001/core"

// Tokenizer issues and verifies signed tokens
type Tokenizer interface {
	IssueAccessToken(principal core.Principal) (core.IssuedToken, error)
	IssueRefreshToken(identityID string) (core.IssuedToken, error)

	// Verify checks signature, expiry and kind. Every failure wraps core.ErrInvalidToken.
	Verify(token string, kind core.TokenKind) (*core.Claims, error)
}

// PasswordHasher is a one-way salted hash
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool

	// DummyDigest is compared against when no identity matches a login
	DummyDigest() string
}
