package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
	"github.com/Gladiston-Porto/Trading-APP-sub001/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Register handles the register request
func (h *AuthHandlers) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	writeData(c, http.StatusCreated, newSessionResponse(res))
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req service.LoginInput
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	writeData(c, http.StatusOK, newSessionResponse(res))
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, malformedBody(err))
		return
	}

	res, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}

	writeData(c, http.StatusOK, newTokensResponse(res))
}

// Logout handles session logout. The body is optional; when it carries the
// caller's refresh token that token is revoked.
func (h *AuthHandlers) Logout(c *gin.Context) {
	principal, ok := PrincipalFrom(c)
	if !ok {
		writeError(c, core.NewError(core.KindUnauthenticated, "authentication required", nil))
		return
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, malformedBody(err))
		return
	}

	if err := h.authService.Logout(c.Request.Context(), principal, req.RefreshToken); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Envelope{Success: true})
}

// Me returns the profile of the authenticated identity
func (h *AuthHandlers) Me(c *gin.Context) {
	principal, ok := PrincipalFrom(c)
	if !ok {
		writeError(c, core.NewError(core.KindUnauthenticated, "authentication required", nil))
		return
	}

	profile, err := h.authService.Me(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}

	writeData(c, http.StatusOK, profile)
}

// Health reports that the process is serving
func (h *AuthHandlers) Health(c *gin.Context) {
	writeData(c, http.StatusOK, gin.H{"status": "ok"})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, malformedBody(err))
		return false
	}
	return true
}

func malformedBody(err error) error {
	return core.NewError(core.KindValidation, "request body must be a JSON object", err)
}
