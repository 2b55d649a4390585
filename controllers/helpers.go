package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"heirloom/middleware"
	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
)

// respond writes a success envelope with the given fields merged in.
func respond(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.Error(apperror.Unauthenticated("authentication required"))
	}
	return p, ok
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.Error(apperror.Validation("invalid " + name))
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.Error(middleware.BindError(err))
		return false
	}
	return true
}

func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
