package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys populated by RequireAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// RoleTeacher gates event creation, badge granting and cross-user badge reads.
const RoleTeacher = "teacher"

// RequireAuth enforces bearer JWT tokens signed with HS256 and exposes the
// caller's id and role claim to downstream handlers.
func RequireAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a Bearer token"})
			return
		}
		claims, err := Parse(strings.TrimSpace(parts[1]), signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired access token"})
			return
		}
		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireTeacher rejects callers whose role claim is not "teacher".
// Must run after RequireAuth.
func RequireTeacher() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRole) != RoleTeacher {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Only teachers can perform this action"})
			return
		}
		c.Next()
	}
}
