package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/commercekit/authsvc/domain"
)

// Context keys populated by AuthMiddleware for downstream handlers.
const (
	CtxUserID    = "user_id"
	CtxUserEmail = "user_email"
	CtxUserRole  = "user_role"
)

// AuthMiddleware validates the bearer token and re-checks the subject
// against the identity store, so a deleted or deactivated account is
// rejected even while its access token is still signature-valid.
func AuthMiddleware(tokenSvc domain.TokenService, userRepo domain.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := tokenSvc.ValidateAccessToken(tokenParts[1])
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			c.Abort()
			return
		}

		user, err := userRepo.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			// Only a confirmed missing account is an authentication failure; a
			// store outage must not masquerade as one.
			if errors.Is(err, domain.ErrUserNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Account no longer valid"})
			} else {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			}
			c.Abort()
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account no longer valid"})
			c.Abort()
			return
		}

		c.Set(CtxUserID, user.ID.String())
		c.Set(CtxUserEmail, user.Email)
		c.Set(CtxUserRole, string(user.Role))

		c.Next()
	}
}
