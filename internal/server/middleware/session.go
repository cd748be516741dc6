package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/auth"
	"github.com/nulzo/chat-router/pkg/api"
)

const sessionContextKey = "session"

// SessionToken reads the session token from the cookie, falling back to a
// Bearer Authorization header for non-browser clients.
func SessionToken(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// RequireSession rejects requests without a live session and stores the
// session in the gin context.
func RequireSession(sessions *auth.SessionManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			_ = c.Error(api.UnauthorizedError("Not authenticated"))
			c.Abort()
			return
		}

		sess, err := sessions.Validate(c.Request.Context(), token)
		if errors.Is(err, auth.ErrInvalidSession) {
			_ = c.Error(api.UnauthorizedError(auth.Message(err)))
			c.Abort()
			return
		}
		if err != nil {
			_ = c.Error(api.InternalError("Failed to load session", err))
			c.Abort()
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session stored by RequireSession.
func CurrentSession(c *gin.Context) (*auth.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*auth.Session)
	return sess, ok
}
