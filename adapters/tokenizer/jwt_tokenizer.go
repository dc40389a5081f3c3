package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
	"github.com/Gladiston-Porto/Trading-APP-sub001/ports"
)

// MinSecretLength is the shortest HMAC secret accepted
const MinSecretLength = 32

// JWTTokenizer implements the Tokenizer interface using JWT
type JWTTokenizer struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures a JWTTokenizer
type Option func(*JWTTokenizer)

// WithIssuer sets the iss claim written and required on every token
func WithIssuer(issuer string) Option {
	return func(j *JWTTokenizer) { j.issuer = issuer }
}

// WithRefreshTTL overrides core.DefaultRefreshTTL
func WithRefreshTTL(ttl time.Duration) Option {
	return func(j *JWTTokenizer) {
		if ttl > 0 {
			j.refreshTTL = ttl
		}
	}
}

// WithClock replaces time.Now for issuing and verifying
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) {
		if now != nil {
			j.now = now
		}
	}
}

// NewHMACTokenizer signs tokens with HS256
func NewHMACTokenizer(secret []byte, opts ...Option) (*JWTTokenizer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}
	return newTokenizer(jwt.SigningMethodHS256, secret, secret, opts), nil
}

// NewECDSATokenizer signs tokens with ES256
func NewECDSATokenizer(signKey *ecdsa.PrivateKey, opts ...Option) (*JWTTokenizer, error) {
	if signKey == nil {
		return nil, errors.New("signing key is required")
	}
	return newTokenizer(jwt.SigningMethodES256, signKey, &signKey.PublicKey, opts), nil
}

func newTokenizer(method jwt.SigningMethod, signKey, verifyKey any, opts []Option) *JWTTokenizer {
	j := &JWTTokenizer{
		method:     method,
		signKey:    signKey,
		verifyKey:  verifyKey,
		accessTTL:  core.AccessTokenTTL,
		refreshTTL: core.DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// RefreshTTL is the lifetime given to refresh tokens
func (j *JWTTokenizer) RefreshTTL() time.Duration {
	return j.refreshTTL
}

// IssueAccessToken converts a principal to an access JWT token
func (j *JWTTokenizer) IssueAccessToken(principal core.Principal) (core.IssuedToken, error) {
	if principal.ID == "" {
		return core.IssuedToken{}, errors.New("principal id is required")
	}
	if !principal.Role.Valid() {
		return core.IssuedToken{}, fmt.Errorf("%w: %q", core.ErrUnknownRole, principal.Role)
	}

	claims := j.newClaims(principal.ID, core.TokenKindAccess, j.accessTTL)
	claims.Email = principal.Email
	claims.Role = principal.Role

	return j.sign(claims)
}

// IssueRefreshToken creates a refresh JWT token bound to identityID
func (j *JWTTokenizer) IssueRefreshToken(identityID string) (core.IssuedToken, error) {
	if identityID == "" {
		return core.IssuedToken{}, errors.New("identity id is required")
	}
	return j.sign(j.newClaims(identityID, core.TokenKindRefresh, j.refreshTTL))
}

// Verify parses tokenStr and checks that it is a valid token of the expected kind
func (j *JWTTokenizer) Verify(tokenStr string, kind core.TokenKind) (*core.Claims, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", core.ErrInvalidToken, kind)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithAudience(audienceFor(kind)),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.verifyKey, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidToken, core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, core.ErrInvalidToken
	}

	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", core.ErrInvalidToken, kind, claims.Kind)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or id", core.ErrInvalidToken)
	}
	if kind == core.TokenKindAccess && !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing role", core.ErrInvalidToken)
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}

	return &core.Claims{
		TokenID:   claims.ID,
		Subject:   claims.Subject,
		Kind:      claims.Kind,
		Email:     claims.Email,
		Role:      claims.Role,
		IssuedAt:  issuedAt,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (j *JWTTokenizer) newClaims(subject string, kind core.TokenKind, ttl time.Duration) *TokenClaims {
	now := j.now()
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{audienceFor(kind)},
		},
		Kind: kind,
	}
}

func (j *JWTTokenizer) sign(claims *TokenClaims) (core.IssuedToken, error) {
	token := jwt.NewWithClaims(j.method, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return core.IssuedToken{}, fmt.Errorf("failed to sign %s token: %w", claims.Kind, err)
	}

	return core.IssuedToken{
		Value:     signedToken,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
