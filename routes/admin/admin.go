package admin

import (
	"github.com/gin-gonic/gin"

	"heirloom/controllers"
	"heirloom/middleware"
	"heirloom/pkg/auth"
	svc "heirloom/pkg/services"
)

func Register(g *gin.RouterGroup, users *svc.AuthService) {
	admin := g.Group("/admin", middleware.RequireCapability(auth.CapManageUsers, "admin access required"))
	admin.GET("/users", controllers.ListUsers(users))
	admin.PUT("/users/:id/role", controllers.SetUserRole(users))
}
