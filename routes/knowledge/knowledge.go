package knowledge

import (
	"github.com/gin-gonic/gin"

	"heirloom/controllers"
	"heirloom/middleware"
	"heirloom/pkg/auth"
	svc "heirloom/pkg/services"
)

// RegisterPublic registers read-only knowledge routes that need no login.
func RegisterPublic(r *gin.Engine, knowledge *svc.KnowledgeService) {
	r.GET("/knowledge", controllers.ListKnowledge(knowledge))
	r.GET("/knowledge/metadata", controllers.KnowledgeMetadata(knowledge))
	r.POST("/knowledge/search", controllers.SearchKnowledge(knowledge))
}

func RegisterProtected(g *gin.RouterGroup, knowledge *svc.KnowledgeService, documents *svc.DocumentService, maxUpload int64) {
	g.POST("/knowledge",
		middleware.RequireCapability(auth.CapManageKnowledge, "only admins and senior developers can add knowledge"),
		controllers.CreateKnowledge(knowledge))
	g.POST("/knowledge/batch",
		middleware.RequireCapability(auth.CapBatchIngest, "only admins can batch insert knowledge"),
		controllers.BatchKnowledge(knowledge))
	g.DELETE("/knowledge/:id", controllers.DeleteKnowledge(knowledge))

	g.POST("/knowledge/upload", controllers.UploadDocument(documents, maxUpload))
	g.GET("/knowledge/documents/my", controllers.MyDocuments(documents))
	g.GET("/knowledge/documents/stats", controllers.DocumentStats(documents))
	g.DELETE("/knowledge/documents/:id", controllers.DeleteDocument(documents))
}
