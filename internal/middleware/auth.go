package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/emergency-notifier/internal/handler"
	"github.com/jwalitptl/emergency-notifier/pkg/auth"
)

const ContextSubject = "subject"

// AuthMiddleware accepts HS256 bearer tokens signed with a shared secret.
// Event producers are services, so only the subject is kept.
type AuthMiddleware struct {
	tokens *auth.TokenManager
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{tokens: auth.NewTokenManager(secret)}
}

// Authenticate verifies the JWT token and sets the subject in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Next()
	}
}
