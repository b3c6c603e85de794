package httpx

import (
	"github.com/gin-gonic/gin"

	"github.com/commercekit/authsvc/internal/http/handlers"
	"github.com/commercekit/authsvc/internal/http/middleware"
)

// BuildRouter wires the public and authenticated route groups. The public
// group is exactly the credential bootstrap surface; everything else runs
// behind the token check and the policy table.
func BuildRouter(
	ah *handlers.AuthHandlers,
	uh *handlers.UserHandlers,
	ph *handlers.PolicyHandlers,
	authMW gin.HandlerFunc,
	casbinMW *middleware.CasbinMW,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	auth := r.Group("/auth")
	auth.POST("/register", ah.Register)
	auth.POST("/login", ah.Login)
	auth.POST("/refresh", ah.Refresh)
	auth.POST("/forgot-password", ah.ForgotPassword)
	auth.POST("/reset-password/:token", ah.ResetPassword)
	auth.GET("/verify-email/:token", ah.VerifyEmail)

	me := r.Group("/users/me").Use(authMW)
	me.GET("", ah.Me)
	me.PATCH("", ah.UpdateProfile)
	me.PATCH("/password", ah.ChangePassword)

	adm := r.Group("/admin").Use(authMW, casbinMW.Enforce())
	adm.GET("/users/:id", uh.Get)
	adm.DELETE("/users/:id", uh.Delete)
	adm.GET("/users/:id/audit", uh.Audit)
	adm.GET("/policies", ph.List)
	adm.POST("/policies", ph.Add)
	adm.DELETE("/policies", ph.Remove)

	return r
}
