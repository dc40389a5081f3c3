package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/credentials"
	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/hasher"
	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/store"
	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/tokenizer"
	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
	"github.com/Gladiston-Porto/Trading-APP-sub001/service"
)

type testServer struct {
	router      *gin.Engine
	credentials *credentials.BunStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := credentials.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	creds := credentials.NewBunStore(db)
	require.NoError(t, creds.CreateSchema(context.Background()))

	h, err := hasher.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tk, err := tokenizer.NewHMACTokenizer([]byte("0123456789abcdef0123456789abcdef"), tokenizer.WithIssuer("tradeauth"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewAuthService(creds, h, tk, store.NewMemoryStore(), service.WithLogger(logger))

	return &testServer{
		router:      SetupRouter(svc, WithRequestLogger(logger), WithMetrics(NewMetrics())),
		credentials: creds,
	}
}

type result struct {
	Status int
	Raw    string
	Body   struct {
		Success bool              `json:"success"`
		Data    json.RawMessage   `json:"data"`
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) result {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	res := result{Status: w.Code, Raw: w.Body.String()}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res.Body), w.Body.String())
	}
	return res
}

func bearer(token string) []string {
	return []string{"Authorization", "Bearer " + token}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return buf.String()
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

const registerAnn = `{"email":"a@x.com","password":"Secret123","passwordConfirm":"Secret123","name":"Ann"}`

func TestScenario(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodPost, "/auth/register", registerAnn)
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)
	assert.True(t, res.Body.Success)
	registered := decode[SessionResponse](t, res.Body.Data)
	assert.Equal(t, core.RoleTrader, registered.Role)
	assert.Equal(t, "Ann", registered.Name)
	assert.Equal(t, "15m", registered.ExpiresIn)

	res = s.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"Secret123"}`)
	require.Equal(t, http.StatusOK, res.Status, res.Raw)
	login := decode[SessionResponse](t, res.Body.Data)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)
	assert.NotEqual(t, registered.RefreshToken, login.RefreshToken)

	res = s.do(t, http.MethodGet, "/auth/me", "", bearer(login.AccessToken)...)
	require.Equal(t, http.StatusOK, res.Status, res.Raw)
	me := decode[map[string]any](t, res.Body.Data)
	assert.Equal(t, "a@x.com", me["email"])
	assert.Equal(t, "TRADER", me["role"])

	res = s.do(t, http.MethodPost, "/auth/refresh", mustJSON(t, map[string]string{"refreshToken": login.RefreshToken}))
	require.Equal(t, http.StatusOK, res.Status, res.Raw)
	refreshed := decode[TokensResponse](t, res.Body.Data)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "15m", refreshed.ExpiresIn)

	// The new access token works and the old one stays valid until it expires.
	res = s.do(t, http.MethodGet, "/auth/me", "", bearer(refreshed.AccessToken)...)
	assert.Equal(t, http.StatusOK, res.Status)
	res = s.do(t, http.MethodGet, "/auth/me", "", bearer(login.AccessToken)...)
	assert.Equal(t, http.StatusOK, res.Status)

	res = s.do(t, http.MethodPost, "/auth/logout", "", bearer(refreshed.AccessToken)...)
	require.Equal(t, http.StatusOK, res.Status, res.Raw)
	assert.True(t, res.Body.Success)
	assert.JSONEq(t, `{"success":true}`, res.Raw)
}

func TestRegister_Errors(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodPost, "/auth/register", registerAnn)
	require.Equal(t, http.StatusCreated, res.Status)

	res = s.do(t, http.MethodPost, "/auth/register",
		`{"email":"A@X.COM","password":"Secret123","passwordConfirm":"Secret123"}`)
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.False(t, res.Body.Success)
	assert.Equal(t, "CONFLICT", res.Body.Code)

	res = s.do(t, http.MethodPost, "/auth/register",
		`{"email":"bad","password":"short","passwordConfirm":"other"}`)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "VALIDATION_ERROR", res.Body.Code)
	assert.Contains(t, res.Body.Errors, "email")
	assert.Contains(t, res.Body.Errors, "password")
	assert.Contains(t, res.Body.Errors, "passwordConfirm")

	res = s.do(t, http.MethodPost, "/auth/register", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "VALIDATION_ERROR", res.Body.Code)
}

func TestRegister_NameMarkupStripped(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodPost, "/auth/register",
		`{"email":"m@x.com","password":"Secret123","passwordConfirm":"Secret123","name":"<img src=x onerror=alert(1)>Mal<script>steal()</script>"}`)
	require.Equal(t, http.StatusCreated, res.Status, res.Raw)

	profile := decode[SessionResponse](t, res.Body.Data)
	assert.Equal(t, "Mal", profile.Name)

	stored, err := s.credentials.FindByID(context.Background(), profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mal", stored.Name)
}

func TestLogin_FailuresIndistinguishable(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/auth/register", registerAnn).Status)

	wrong := s.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"Wrong1234"}`)
	unknown := s.do(t, http.MethodPost, "/auth/login", `{"email":"who@x.com","password":"Secret123"}`)

	assert.Equal(t, http.StatusUnauthorized, wrong.Status)
	assert.Equal(t, "INVALID_CREDENTIALS", wrong.Body.Code)
	assert.Equal(t, wrong.Status, unknown.Status)
	assert.Equal(t, wrong.Raw, unknown.Raw)

	res := s.do(t, http.MethodPost, "/auth/login", `{}`)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "VALIDATION_ERROR", res.Body.Code)
}

func TestNoPasswordHashInResponses(t *testing.T) {
	s := newTestServer(t)

	register := s.do(t, http.MethodPost, "/auth/register", registerAnn)
	session := decode[SessionResponse](t, register.Body.Data)
	login := s.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"Secret123"}`)
	refresh := s.do(t, http.MethodPost, "/auth/refresh", mustJSON(t, map[string]string{"refreshToken": session.RefreshToken}))
	me := s.do(t, http.MethodGet, "/auth/me", "", bearer(session.AccessToken)...)

	stored, err := s.credentials.FindByID(context.Background(), session.ID)
	require.NoError(t, err)

	for name, res := range map[string]result{"register": register, "login": login, "refresh": refresh, "me": me} {
		t.Run(name, func(t *testing.T) {
			require.True(t, res.Body.Success, res.Raw)
			for key := range decode[map[string]any](t, res.Body.Data) {
				lower := strings.ToLower(key)
				assert.NotContains(t, lower, "password")
				assert.NotContains(t, lower, "hash")
			}
			assert.NotContains(t, res.Raw, stored.PasswordHash)
		})
	}
}

func TestRefresh_Errors(t *testing.T) {
	s := newTestServer(t)
	session := decode[SessionResponse](t, s.do(t, http.MethodPost, "/auth/register", registerAnn).Body.Data)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty object", `{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"no body", ``, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"garbage token", `{"refreshToken":"garbage"}`, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"access token", mustJSON(t, map[string]string{"refreshToken": session.AccessToken}), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"malformed json", `{"refreshToken":`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(t, http.MethodPost, "/auth/refresh", tt.body)
			assert.Equal(t, tt.status, res.Status, res.Raw)
			assert.Equal(t, tt.code, res.Body.Code)
		})
	}

	// Reusing a rotated refresh token fails.
	body := mustJSON(t, map[string]string{"refreshToken": session.RefreshToken})
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/auth/refresh", body).Status)
	res := s.do(t, http.MethodPost, "/auth/refresh", body)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "INVALID_TOKEN", res.Body.Code)
}

func TestAccessGate(t *testing.T) {
	s := newTestServer(t)
	session := decode[SessionResponse](t, s.do(t, http.MethodPost, "/auth/register", registerAnn).Body.Data)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"absent", "", "UNAUTHENTICATED"},
		{"wrong scheme", "InvalidFormat token", "UNAUTHENTICATED"},
		{"lower-case scheme", "bearer " + session.AccessToken, "UNAUTHENTICATED"},
		{"empty token", "Bearer ", "UNAUTHENTICATED"},
		{"garbage token", "Bearer not.a.jwt", "INVALID_TOKEN"},
		{"refresh token", "Bearer " + session.RefreshToken, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		for _, route := range []struct{ method, path string }{
			{http.MethodGet, "/auth/me"},
			{http.MethodPost, "/auth/logout"},
		} {
			t.Run(tt.name+" "+route.path, func(t *testing.T) {
				var headers []string
				if tt.header != "" {
					headers = []string{"Authorization", tt.header}
				}
				res := s.do(t, route.method, route.path, "", headers...)
				assert.Equal(t, http.StatusUnauthorized, res.Status)
				assert.False(t, res.Body.Success)
				assert.Equal(t, tt.code, res.Body.Code)
			})
		}
	}
}

func TestMe_DeletedIdentity(t *testing.T) {
	s := newTestServer(t)
	session := decode[SessionResponse](t, s.do(t, http.MethodPost, "/auth/register", registerAnn).Body.Data)

	require.NoError(t, s.credentials.Delete(context.Background(), session.ID))

	res := s.do(t, http.MethodGet, "/auth/me", "", bearer(session.AccessToken)...)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "NOT_FOUND", res.Body.Code)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	s := newTestServer(t)
	session := decode[SessionResponse](t, s.do(t, http.MethodPost, "/auth/register", registerAnn).Body.Data)

	body := mustJSON(t, map[string]string{"refreshToken": session.RefreshToken})
	res := s.do(t, http.MethodPost, "/auth/logout", body, bearer(session.AccessToken)...)
	require.Equal(t, http.StatusOK, res.Status, res.Raw)

	res = s.do(t, http.MethodPost, "/auth/refresh", body)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "INVALID_TOKEN", res.Body.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, res.Raw)

	s.do(t, http.MethodPost, "/auth/login", `{"email":"who@x.com","password":"Secret123"}`)

	res = s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, res.Raw, "tradeauth_http_requests_total")
	assert.Contains(t, res.Raw, `tradeauth_auth_failures_total{code="INVALID_CREDENTIALS",route="/auth/login"} 1`)
}
