package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svc "heirloom/pkg/services"
)

func ListUsers(auth *svc.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		users, err := auth.ListUsers(c.Request.Context(), p)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"users": users})
	}
}

func SetUserRole(auth *svc.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var body struct {
			Role string `json:"role" binding:"required"`
		}
		if !bindJSON(c, &body) {
			return
		}
		user, err := auth.SetRole(c.Request.Context(), p, id, body.Role)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"user": user})
	}
}
