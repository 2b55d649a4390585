package profile

import (
	"github.com/gin-gonic/gin"

	"heirloom/controllers"
	svc "heirloom/pkg/services"
)

// Register registers protected profile routes on supplied router group
// expects the group to already have AuthMiddleware applied
func Register(g *gin.RouterGroup, auth *svc.AuthService) {
	g.GET("/profile", controllers.Profile(auth))
	g.PUT("/profile", controllers.Profile(auth))
}
