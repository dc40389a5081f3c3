package http

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
)

const (
	bearerPrefix = "Bearer "
	principalKey = "principal"
)

// Authenticator resolves an access token to the caller
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (core.Principal, error)
}

// AuthMiddleware creates middleware that validates access tokens
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		// The scheme is case-sensitive and the token must not be empty
		if !strings.HasPrefix(header, bearerPrefix) || strings.TrimSpace(header[len(bearerPrefix):]) == "" {
			writeError(c, core.NewError(core.KindUnauthenticated, "missing or malformed authorization header", nil))
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			writeError(c, err)
			return
		}

		c.Set(principalKey, principal)
		c.Request = c.Request.WithContext(core.WithPrincipal(c.Request.Context(), principal))

		c.Next()
	}
}

// PrincipalFrom returns the caller attached by AuthMiddleware
func PrincipalFrom(c *gin.Context) (core.Principal, bool) {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(core.Principal); ok {
			return p, true
		}
	}
	return core.PrincipalFromContext(c.Request.Context())
}

// RequestLogger writes one structured line per request
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if code, ok := c.Get(errorCodeKey); ok {
			attrs = append(attrs, slog.Any("code", code))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.LogAttrs(c.Request.Context(), level, "http request", attrs...)
	}
}
