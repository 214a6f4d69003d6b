package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/grork/ai-chat-backend/internal/domain"
)

// Context keys populated by the auth middleware for downstream handlers.
const (
	ctxKeyUserID   = "userID"
	ctxKeyUserRole = "userRole"
	ctxKeyUser     = "authUser"
)

// UserResolver turns a bearer token into the live account it belongs to.
// Implementations reject expired or revoked tokens and tokens whose subject
// no longer exists.
type UserResolver interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

// RequireUser returns middleware that authenticates the request via the
// Authorization header ("Bearer <token>"). On success it stores the user ID,
// role, and account in the Gin context and continues; otherwise it aborts
// with a 401 JSON envelope. Missing, malformed, expired, and revoked
// credentials are indistinguishable in the response.
func RequireUser(resolver UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		c.Set(ctxKeyUserID, user.ID)
		c.Set(ctxKeyUserRole, user.Role)
		c.Set(ctxKeyUser, user)
		c.Next()
	}
}

// RequireAdmin returns middleware that rejects authenticated non-admin
// callers with 403. It must be installed after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, ok := c.Get(ctxKeyUserRole); !ok || asString(role) != domain.RoleAdmin {
			abortAuth(c, http.StatusForbidden, "forbidden", "admin privileges required")
			return
		}
		c.Next()
	}
}

// UserFrom returns the authenticated account stored by RequireUser.
func UserFrom(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok
}

// UserIDFrom returns the authenticated user ID, or "" when unauthenticated.
func UserIDFrom(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserID)
	return asString(v)
}

// bearerToken extracts the credential from an Authorization header value.
// The "Bearer" scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func abortAuth(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
