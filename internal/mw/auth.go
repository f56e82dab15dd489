package mw

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"longmail-backend/internal/auth"
	"longmail-backend/internal/model"
)

// Auth requires a valid bearer token and stores the caller's identity in the request context.
func Auth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.Header("WWW-Authenticate", `Bearer realm="auth_required"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer authentication required"})
			return
		}

		id, err := issuer.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireRole lets through only callers holding one of roles. It must run after Auth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.FromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer authentication required"})
			return
		}
		if !slices.Contains(roles, id.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role " + string(id.Role) + " may not do this"})
			return
		}
		c.Next()
	}
}

// CallerID returns the authenticated user id, or "" for anonymous requests.
func CallerID(c *gin.Context) string {
	id, _ := auth.FromContext(c.Request.Context())
	return id.UserID
}
