package tokenizer

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
)

// Audiences mirror the kind claim so a token is rejected by any parser
// configured for the other kind, even one that ignores "kind".
const (
	AudienceAccess  = "session:access"
	AudienceRefresh = "session:refresh"
)

// TokenClaims combines standard claims with the token kind and, for access
// tokens, the identity's email and role
type TokenClaims struct {
	jwt.RegisteredClaims
	Kind  core.TokenKind `json:"kind"`
	Email string         `json:"email,omitempty"`
	Role  core.Role      `json:"role,omitempty"`
}

func audienceFor(kind core.TokenKind) string {
	if kind == core.TokenKindRefresh {
		return AudienceRefresh
	}
	return AudienceAccess
}
