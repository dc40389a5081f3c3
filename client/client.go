// Package client talks to the tradeauth HTTP API and keeps the session tokens
// in an injected TokenStorage.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
)

const defaultTimeout = 15 * time.Second

// ErrNotAuthenticated is returned when no tokens are stored
var ErrNotAuthenticated = errors.New("client is not authenticated")

// Client wraps the HTTP calls to the auth service
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	storage    TokenStorage
	logger     *slog.Logger
}

// Options allows overriding the client's dependencies
type Options struct {
	HTTPClient *http.Client
	Storage    TokenStorage
	Logger     *slog.Logger
}

// New creates a client for the service at baseURL
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse baseURL: %w", err)
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: opts.HTTPClient,
		storage:    opts.Storage,
		logger:     opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.storage == nil {
		c.storage = NewMemoryStorage()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Error is a failure reported by the service
type Error struct {
	Op      string
	Status  int
	Code    core.ErrorKind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %d %s: %s", e.Op, e.Status, e.Code, e.Message)
}

// IsKind reports whether err is a service error of the given kind
func IsKind(err error, kind core.ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == kind
}

// Profile is the public view of an identity
type Profile struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  core.Role `json:"role"`
}

// Tokens is a token pair as returned by the service
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// Session is returned by Register and Login
type Session struct {
	Profile
	Tokens
}

// RegisterRequest is the register payload
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name,omitempty"`
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Code    core.ErrorKind    `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// Register creates an account and stores its tokens
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	var session Session
	if err := c.call(ctx, "Register", http.MethodPost, "/auth/register", "", req, &session); err != nil {
		return nil, err
	}
	if err := c.saveTokens(ctx, session.Tokens); err != nil {
		return nil, err
	}
	return &session, nil
}

// Login signs in and stores the new tokens
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{"email": email, "password": password}

	var session Session
	if err := c.call(ctx, "Login", http.MethodPost, "/auth/login", "", payload, &session); err != nil {
		return nil, err
	}
	if err := c.saveTokens(ctx, session.Tokens); err != nil {
		return nil, err
	}
	return &session, nil
}

// Refresh rotates the stored refresh token. A rejected token clears storage.
func (c *Client) Refresh(ctx context.Context) (*Tokens, error) {
	refreshToken, ok, err := c.storage.Get(ctx, RefreshTokenKey)
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	if !ok || refreshToken == "" {
		return nil, ErrNotAuthenticated
	}

	var tokens Tokens
	err = c.call(ctx, "Refresh", http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": refreshToken}, &tokens)
	if err != nil {
		if IsKind(err, core.KindInvalidToken) {
			c.clear(ctx)
		}
		return nil, err
	}
	if err := c.saveTokens(ctx, tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Me returns the signed-in profile, refreshing the access token once if it
// was rejected
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.authorized(ctx, "Me", http.MethodGet, "/auth/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Logout revokes the stored refresh token and forgets both tokens. Storage is
// cleared even when the service call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.clear(ctx)

	accessToken, ok, err := c.storage.Get(ctx, AccessTokenKey)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	if !ok || accessToken == "" {
		return nil
	}

	var payload any
	if refreshToken, ok, _ := c.storage.Get(ctx, RefreshTokenKey); ok && refreshToken != "" {
		payload = map[string]string{"refreshToken": refreshToken}
	}

	err = c.call(ctx, "Logout", http.MethodPost, "/auth/logout", accessToken, payload, nil)
	if IsKind(err, core.KindInvalidToken) || IsKind(err, core.KindUnauthenticated) {
		return nil
	}
	return err
}

// IsAuthenticated reports whether an access token is stored
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	token, ok, err := c.storage.Get(ctx, AccessTokenKey)
	return err == nil && ok && token != ""
}

func (c *Client) authorized(ctx context.Context, op, method, path string, payload, out any) error {
	accessToken, ok, err := c.storage.Get(ctx, AccessTokenKey)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	if !ok || accessToken == "" {
		return ErrNotAuthenticated
	}

	err = c.call(ctx, op, method, path, accessToken, payload, out)
	if !IsKind(err, core.KindInvalidToken) {
		return err
	}

	c.logger.DebugContext(ctx, "access token rejected, refreshing", slog.String("op", op))
	tokens, refreshErr := c.Refresh(ctx)
	if refreshErr != nil {
		return err
	}
	return c.call(ctx, op, method, path, tokens.AccessToken, payload, out)
}

func (c *Client) call(ctx context.Context, op, method, path, accessToken string, payload, out any) error {
	resp, err := c.doJSON(ctx, method, path, accessToken, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var body envelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%s: decode response (status %d): %w", op, resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 || !body.Success {
		return &Error{
			Op:      op,
			Status:  resp.StatusCode,
			Code:    body.Code,
			Message: body.Message,
			Fields:  body.Errors,
		}
	}

	if out != nil && len(body.Data) > 0 {
		if err := json.Unmarshal(body.Data, out); err != nil {
			return fmt.Errorf("%s: decode data: %w", op, err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body io.Reader) (*http.Response, error) {
	rel, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, err
	}
	base := *c.baseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	full := base.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, method, full.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return c.httpClient.Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path, accessToken string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, err
		}
		body = buf
	}
	return c.do(ctx, method, path, accessToken, body)
}

func (c *Client) saveTokens(ctx context.Context, tokens Tokens) error {
	if err := c.storage.Set(ctx, AccessTokenKey, tokens.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := c.storage.Set(ctx, RefreshTokenKey, tokens.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (c *Client) clear(ctx context.Context) {
	if err := c.storage.Delete(ctx, AccessTokenKey, RefreshTokenKey); err != nil {
		c.logger.WarnContext(ctx, "failed to clear stored tokens", slog.String("error", err.Error()))
	}
}
