package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heirloom/controllers"
	"heirloom/middleware"
	"heirloom/pkg/config"
	svc "heirloom/pkg/services"

	adminRoutes "heirloom/routes/admin"
	analyticsRoutes "heirloom/routes/analytics"
	authRoutes "heirloom/routes/auth"
	convRoutes "heirloom/routes/conversation"
	knowledgeRoutes "heirloom/routes/knowledge"
	legacyRoutes "heirloom/routes/legacy"
	profileRoutes "heirloom/routes/profile"
	uploadsRoutes "heirloom/routes/uploads"
	websocketRoutes "heirloom/routes/websocket"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Config        *config.Config
	Log           *zap.Logger
	Auth          *svc.AuthService
	Conversations *svc.ConversationService
	Analytics     *svc.AnalyticsService
	Legacy        *svc.LegacyService
	Knowledge     *svc.KnowledgeService
	Documents     *svc.DocumentService
	// UploadsPath and UploadsDir are set when documents are kept on local
	// disk and should be served.
	UploadsPath string
	UploadsDir  string
}

func RegisterRoutes(r *gin.Engine, d Dependencies) {
	r.GET("/health", controllers.Health())

	if d.UploadsPath != "" {
		uploadsRoutes.Register(r, d.UploadsPath, d.UploadsDir)
	}
	websocketRoutes.Register(r, d.Auth, d.Conversations, d.Log)
	authRoutes.RegisterPublic(r, d.Auth)
	knowledgeRoutes.RegisterPublic(r, d.Knowledge)

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware(d.Auth))
	authRoutes.RegisterProtected(protected, d.Auth)
	profileRoutes.Register(protected, d.Auth)
	convRoutes.Register(protected, d.Conversations)
	analyticsRoutes.Register(protected, d.Analytics)
	legacyRoutes.Register(protected, d.Legacy)
	knowledgeRoutes.RegisterProtected(protected, d.Knowledge, d.Documents, d.Config.MaxUploadBytes())
	adminRoutes.Register(protected, d.Auth)
}
