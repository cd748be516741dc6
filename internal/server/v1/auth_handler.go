package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/auth"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/server/middleware"
	"github.com/nulzo/chat-router/internal/store/model"
	"github.com/nulzo/chat-router/pkg/api"
	"go.uber.org/zap"
)

// AuthHandler serves the browser auth endpoints. Outcomes use the
// {success, message} envelope instead of problem documents.
type AuthHandler struct {
	auth     *auth.Service
	sessions *auth.SessionManager
	cookie   config.SessionConfig
	logger   *zap.Logger
}

func NewAuthHandler(svc *auth.Service, sessions *auth.SessionManager, cookie config.SessionConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, sessions: sessions, cookie: cookie, logger: logger}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req api.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, auth.ErrMissingFields)
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusCreated, api.AuthResponse{Success: true, Message: "User created"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req api.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, auth.ErrMissingFields)
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, api.AuthResponse{Success: true, Message: "Logged in"})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.SessionToken(c, h.cookie.CookieName); token != "" {
		if err := h.sessions.Destroy(c.Request.Context(), token); err != nil {
			h.logger.Warn("failed to destroy session", zap.Error(err))
		}
	}
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, api.AuthResponse{Success: true})
}

// Session reports the signed-in user. It sits behind RequireSession.
func (h *AuthHandler) Session(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		_ = c.Error(api.UnauthorizedError("Not authenticated"))
		return
	}
	c.JSON(http.StatusOK, api.SessionResponse{User: sess.User, ExpiresAt: sess.ExpiresAt})
}

func (h *AuthHandler) startSession(c *gin.Context, user *model.User) bool {
	token, _, err := h.sessions.Create(c.Request.Context(), auth.SessionUser(user))
	if err != nil {
		_ = c.Error(api.InternalError("Failed to start session", err))
		return false
	}
	h.setCookie(c, token, int(h.sessions.TTL().Seconds()))
	return true
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, value, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	msg := auth.Message(err)
	if msg == "" {
		_ = c.Error(api.InternalError("Authentication failed", err))
		return
	}

	status := http.StatusUnauthorized
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrEmailTaken):
		status = http.StatusConflict
	}
	c.JSON(status, api.AuthResponse{Success: false, Message: msg})
}
