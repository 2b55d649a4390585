package uploads

import "github.com/gin-gonic/gin"

// Register serves locally stored documents under urlPath.
func Register(r *gin.Engine, urlPath, dir string) {
	r.Static(urlPath, dir)
}
