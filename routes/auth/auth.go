package auth

import (
	"github.com/gin-gonic/gin"

	"heirloom/controllers"
	svc "heirloom/pkg/services"
)

// RegisterPublic registers public auth routes: /auth/register, /auth/login, /auth/refresh
func RegisterPublic(r *gin.Engine, auth *svc.AuthService) {
	g := r.Group("/auth")
	g.POST("/register", controllers.Register(auth))
	g.POST("/login", controllers.Login(auth))
	g.POST("/refresh", controllers.Refresh(auth))
}

// RegisterProtected registers protected auth routes (me, logout)
func RegisterProtected(g *gin.RouterGroup, auth *svc.AuthService) {
	g.GET("/auth/me", controllers.Me(auth))
	g.POST("/auth/logout", controllers.Logout(auth))
}
