package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/commercekit/authsvc/domain"
)

// CasbinMW enforces the persisted RBAC policy table on authenticated
// routes. It runs after AuthMiddleware and reads the role it set.
type CasbinMW struct {
	enforcer domain.CasbinEnforcer
}

// NewCasbinMW creates new casbin middleware wrapper.
func NewCasbinMW(enforcer domain.CasbinEnforcer) *CasbinMW {
	return &CasbinMW{enforcer: enforcer}
}

// Enforce returns the casbin authorization middleware.
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxUserRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Role not found in token"})
			c.Abort()
			return
		}

		// Policy subjects are prefixed so role names can never collide with
		// user identifiers.
		casbinRole := "role_" + role.(string)
		allowed, err := mw.enforcer.Enforce(casbinRole, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			c.Abort()
			return
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}

		c.Next()
	}
}
