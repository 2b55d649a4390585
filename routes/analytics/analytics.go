package analytics

import (
	"github.com/gin-gonic/gin"

	"heirloom/controllers"
	"heirloom/middleware"
	"heirloom/pkg/auth"
	svc "heirloom/pkg/services"
)

func Register(g *gin.RouterGroup, analytics *svc.AnalyticsService) {
	g.GET("/analytics/dashboard", controllers.Dashboard(analytics))
	g.GET("/analytics/conversations", controllers.ConversationAnalytics(analytics))
	g.GET("/analytics/ai-usage", controllers.AIUsage(analytics))
	g.GET("/analytics/legacy-engagement",
		middleware.RequireCapability(auth.CapViewLegacyEngagement, "only admins and senior developers can view legacy engagement"),
		controllers.LegacyEngagement(analytics))
}
