package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/services"
)

// SessionClaimsKey is the context key for the authenticated session claims
const SessionClaimsKey = "session_claims"

// SessionCookieName is the cookie carrying the session JWT
const SessionCookieName = "session_token"

// extractToken pulls the session JWT from the cookie or Authorization header
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// SessionAuthMiddleware validates the session JWT from cookie or
// Authorization header and stores its claims in the request context
func SessionAuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
			c.Abort()
			return
		}

		claims, err := authService.VerifySessionToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(SessionClaimsKey, claims)
		c.Next()
	}
}

// RequireStaff aborts with 403 unless the session belongs to a staff user.
// Must run after SessionAuthMiddleware.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetSessionClaims(c)
		if claims == nil || !claims.IsStaff {
			c.JSON(http.StatusForbidden, gin.H{"error": "staff access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSuperuser aborts with 403 unless the session belongs to a superuser.
// Must run after SessionAuthMiddleware.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetSessionClaims(c)
		if claims == nil || !claims.IsSuperuser {
			c.JSON(http.StatusForbidden, gin.H{"error": "superuser access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetSessionClaims retrieves the session claims stored by SessionAuthMiddleware
func GetSessionClaims(c *gin.Context) *services.SessionClaims {
	if v, exists := c.Get(SessionClaimsKey); exists {
		if claims, ok := v.(*services.SessionClaims); ok {
			return claims
		}
	}
	return nil
}
