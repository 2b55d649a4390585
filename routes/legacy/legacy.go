package legacy

import (
	"github.com/gin-gonic/gin"

	"heirloom/controllers"
	svc "heirloom/pkg/services"
)

// Register registers legacy message routes; role checks live in the service.
func Register(g *gin.RouterGroup, legacy *svc.LegacyService) {
	g.GET("/legacy", controllers.ListLegacy(legacy))
	g.GET("/legacy/daily-wisdom", controllers.DailyWisdom(legacy))
	g.GET("/legacy/:id", controllers.GetLegacy(legacy))
	g.POST("/legacy", controllers.CreateLegacy(legacy))
	g.PUT("/legacy/:id", controllers.UpdateLegacy(legacy))
	g.DELETE("/legacy/:id", controllers.DeleteLegacy(legacy))
}
