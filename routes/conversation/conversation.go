package conversation

import (
	"github.com/gin-gonic/gin"

	"heirloom/controllers"
	"heirloom/middleware"
	svc "heirloom/pkg/services"
)

// Register registers conversation routes (protected)
func Register(g *gin.RouterGroup, conversations *svc.ConversationService) {
	// rate limiting on chat POST endpoints
	g.POST("/conversations/start", middleware.RateLimit(), controllers.StartConversation(conversations))
	g.POST("/conversations/:id/message", middleware.RateLimit(), controllers.SendMessage(conversations))
	g.GET("/conversations", controllers.ListConversations(conversations))
	g.GET("/conversations/:id", controllers.GetConversation(conversations))
	g.DELETE("/conversations/:id", controllers.DeleteConversation(conversations))
}
