package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
)

// errorCodeKey is where writeError leaves the error kind for the logging and
// metrics middleware
const errorCodeKey = "errorCode"

// Envelope is the body of every JSON response
type Envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Code    core.ErrorKind    `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// TokensResponse is returned by refresh
type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// SessionResponse is returned by register and login
type SessionResponse struct {
	core.Profile
	TokensResponse
}

func newTokensResponse(res *core.AuthResult) TokensResponse {
	return TokensResponse{
		AccessToken:  res.Tokens.Access.Value,
		RefreshToken: res.Tokens.Refresh.Value,
		ExpiresIn:    res.ExpiresIn,
	}
}

func newSessionResponse(res *core.AuthResult) SessionResponse {
	return SessionResponse{
		Profile:        res.Profile,
		TokensResponse: newTokensResponse(res),
	}
}

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindInvalidCredentials, core.KindUnauthenticated, core.KindInvalidToken:
		return http.StatusUnauthorized
	case core.KindConflict:
		return http.StatusConflict
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the envelope for err. Unclassified
// errors are reported as INTERNAL without their message.
func writeError(c *gin.Context, err error) {
	var e *core.Error
	if !errors.As(err, &e) {
		e = core.NewError(core.KindInternal, "internal server error", err)
	}

	c.Set(errorCodeKey, e.Kind)
	if e.Err != nil {
		_ = c.Error(e.Err)
	}

	c.AbortWithStatusJSON(StatusFor(e.Kind), Envelope{
		Success: false,
		Code:    e.Kind,
		Message: e.Message,
		Errors:  e.Fields,
	})
}
