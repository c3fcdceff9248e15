package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"visitor-system-backend/internal/ctxutil"
)

// TokenValidator resolves a bearer token to the admin behind it.
type TokenValidator interface {
	Authenticate(ctx context.Context, token string) (ctxutil.Principal, error)
}

// Auth attaches the admin principal to the request context when a valid
// bearer token is present. Requests without a token pass through anonymous;
// an invalid token is rejected.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.Request)
		if token == "" {
			c.Next()
			return
		}
		p, err := validator.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "could not validate credentials"})
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// RequireAdmin rejects anonymous requests.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ctxutil.PrincipalFromCtx(c.Request.Context()); !ok {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "not authenticated"})
			return
		}
		c.Next()
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}
