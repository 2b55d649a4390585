package websocket

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heirloom/controllers"
	"heirloom/middleware"
	svc "heirloom/pkg/services"
)

func Register(r *gin.Engine, auth *svc.AuthService, conversations *svc.ConversationService, log *zap.Logger) {
	r.GET("/ws/conversations/:id", middleware.WebSocketAuth(auth), middleware.RateLimit(), controllers.ConversationWS(conversations, log))
}
