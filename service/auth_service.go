package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
	"github.com/Gladiston-Porto/Trading-APP-sub001/ports"
)

// AuthService handles registration, login and the token lifecycle
type AuthService struct {
	credentials ports.CredentialStore
	hasher      ports.PasswordHasher
	tokenizer   ports.Tokenizer
	store       ports.Store
	eventPub    ports.EventPublisher

	logger *slog.Logger
	now    func() time.Time
}

// Option configures an AuthService
type Option func(*AuthService)

// WithLogger sets the logger used for internal failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventPublisher enables lifecycle events
func WithEventPublisher(pub ports.EventPublisher) Option {
	return func(s *AuthService) { s.eventPub = pub }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	credentials ports.CredentialStore,
	hasher ports.PasswordHasher,
	tokenizer ports.Tokenizer,
	store ports.Store,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		credentials: credentials,
		hasher:      hasher,
		tokenizer:   tokenizer,
		store:       store,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a TRADER identity and signs it in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*core.AuthResult, error) {
	in.Email = core.NormalizeEmail(in.Email)
	in.Name = SanitizeText(in.Name)

	if err := in.Validate(); err != nil {
		return nil, validationFailed(err)
	}
	if in.Name == "" {
		in.Name = defaultName(in.Email)
	}

	if _, err := s.credentials.FindByEmail(ctx, in.Email); err == nil {
		return nil, conflict(nil)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, s.internal(ctx, "register.lookup", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal(ctx, "register.hash", err)
	}

	identity, err := s.credentials.Create(ctx, &core.Identity{
		Email:        in.Email,
		Name:         in.Name,
		Role:         core.RoleTrader,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateEmail) {
			return nil, conflict(err)
		}
		return nil, s.internal(ctx, "register.create", err)
	}

	tokens, err := s.issuePair(identity)
	if err != nil {
		return nil, s.internal(ctx, "register.issue", err)
	}

	s.logger.InfoContext(ctx, "identity registered", slog.String("identity_id", identity.ID))
	s.publish(ctx, core.Event{Type: core.EventUserRegistered, IdentityID: identity.ID})

	return s.result(identity, tokens), nil
}

// Login verifies credentials and issues a fresh token pair. Unknown emails
// and wrong passwords produce the same error after the same amount of work.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*core.AuthResult, error) {
	if err := in.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	identity, err := s.credentials.FindByEmail(ctx, core.NormalizeEmail(in.Email))
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.hasher.Verify(in.Password, s.hasher.DummyDigest())
		s.publish(ctx, core.Event{Type: core.EventUserLoginFailed})
		return nil, invalidCredentials()
	case err != nil:
		return nil, s.internal(ctx, "login.lookup", err)
	}

	if !s.hasher.Verify(in.Password, identity.PasswordHash) {
		s.publish(ctx, core.Event{Type: core.EventUserLoginFailed})
		return nil, invalidCredentials()
	}

	tokens, err := s.issuePair(identity)
	if err != nil {
		return nil, s.internal(ctx, "login.issue", err)
	}

	s.publish(ctx, core.Event{Type: core.EventUserLoggedIn, IdentityID: identity.ID})

	return s.result(identity, tokens), nil
}

// Refresh rotates a refresh token. Each refresh token can be used once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*core.AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, &core.Error{
			Kind:    core.KindValidation,
			Message: "validation failed",
			Fields:  map[string]string{"refreshToken": "cannot be blank"},
		}
	}

	claims, err := s.tokenizer.Verify(refreshToken, core.TokenKindRefresh)
	if err != nil {
		return nil, invalidToken(err)
	}

	identity, err := s.credentials.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, invalidToken(err)
		}
		return nil, s.internal(ctx, "refresh.lookup", err)
	}

	consumed, err := s.store.ConsumeToken(ctx, claims.TokenID, claims.ExpiresAt.Sub(s.now()))
	if err != nil {
		return nil, s.internal(ctx, "refresh.consume", err)
	}
	if !consumed {
		s.logger.WarnContext(ctx, "refresh token reused",
			slog.String("identity_id", identity.ID),
			slog.String("token_id", claims.TokenID))
		return nil, invalidToken(core.ErrTokenConsumed)
	}

	tokens, err := s.issuePair(identity)
	if err != nil {
		return nil, s.internal(ctx, "refresh.issue", err)
	}

	s.publish(ctx, core.Event{Type: core.EventTokenRefreshed, IdentityID: identity.ID, TokenID: claims.TokenID})

	return s.result(identity, tokens), nil
}

// Logout ends the caller's session. Tokens are stateless so the client is
// expected to discard them; a refresh token belonging to the caller is
// additionally revoked so it cannot be rotated again.
func (s *AuthService) Logout(ctx context.Context, principal core.Principal, refreshToken string) error {
	if principal.ID == "" {
		return core.NewError(core.KindUnauthenticated, "authentication required", nil)
	}

	var revokedID string
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		claims, err := s.tokenizer.Verify(refreshToken, core.TokenKindRefresh)
		switch {
		case err != nil:
			s.logger.DebugContext(ctx, "ignoring invalid refresh token on logout", slog.String("error", err.Error()))
		case claims.Subject != principal.ID:
			s.logger.WarnContext(ctx, "ignoring foreign refresh token on logout", slog.String("identity_id", principal.ID))
		default:
			if err := s.store.InvalidateToken(ctx, claims.TokenID, claims.ExpiresAt.Sub(s.now())); err != nil {
				s.logger.ErrorContext(ctx, "failed to revoke refresh token", slog.String("error", err.Error()))
			} else {
				revokedID = claims.TokenID
			}
		}
	}

	s.publish(ctx, core.Event{Type: core.EventUserLoggedOut, IdentityID: principal.ID, TokenID: revokedID})
	return nil
}

// Me returns the caller's profile. An identity deleted after the token was
// issued yields NOT_FOUND.
func (s *AuthService) Me(ctx context.Context, principal core.Principal) (core.Profile, error) {
	identity, err := s.credentials.FindByID(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Profile{}, core.NewError(core.KindNotFound, "identity not found", err)
		}
		return core.Profile{}, s.internal(ctx, "me.lookup", err)
	}
	return identity.Profile(), nil
}

// Authenticate verifies an access token and returns its principal
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (core.Principal, error) {
	claims, err := s.tokenizer.Verify(accessToken, core.TokenKindAccess)
	if err != nil {
		return core.Principal{}, invalidToken(err)
	}
	return claims.Principal(), nil
}

func (s *AuthService) issuePair(identity *core.Identity) (core.TokenPair, error) {
	access, err := s.tokenizer.IssueAccessToken(core.Principal{
		ID:    identity.ID,
		Email: identity.Email,
		Role:  identity.Role,
	})
	if err != nil {
		return core.TokenPair{}, err
	}

	refresh, err := s.tokenizer.IssueRefreshToken(identity.ID)
	if err != nil {
		return core.TokenPair{}, err
	}

	return core.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) result(identity *core.Identity, tokens core.TokenPair) *core.AuthResult {
	return &core.AuthResult{
		Profile:   identity.Profile(),
		Tokens:    tokens,
		ExpiresIn: core.FormatTTL(core.AccessTokenTTL),
	}
}

func (s *AuthService) publish(ctx context.Context, event core.Event) {
	if s.eventPub == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.eventPub.Publish(ctx, event); err != nil {
		// The lifecycle step already happened; events are best effort.
		s.logger.WarnContext(ctx, "failed to publish auth event",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}

func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "auth operation failed", slog.String("op", op), slog.String("error", err.Error()))
	return core.NewError(core.KindInternal, "internal server error", err)
}

func conflict(cause error) error {
	return core.NewError(core.KindConflict, "email already registered", cause)
}

func invalidCredentials() error {
	return core.NewError(core.KindInvalidCredentials, "invalid email or password", nil)
}

func invalidToken(cause error) error {
	return core.NewError(core.KindInvalidToken, "invalid or expired token", cause)
}

func defaultName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
