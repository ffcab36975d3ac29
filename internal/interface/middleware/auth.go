package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bapconnect/connect-api/internal/infrastructure/auth"
	"github.com/bapconnect/connect-api/pkg/response"
)

const (
	CtxUserIDKey = "userID"
	CtxTokenKey  = "bearerToken"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Auth validates the bearer access token and rejects tokens that were
// invalidated on logout. It sets userID and the raw token in the Gin context.
func Auth(p *auth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, err := p.JWT.Parse(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", err.Error())
			c.Abort()
			return
		}
		revoked, err := p.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil || revoked {
			response.Error[any](c, http.StatusUnauthorized, "access token no longer valid", nil)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxTokenKey, token)
		c.Next()
	}
}
