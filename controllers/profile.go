package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svc "heirloom/pkg/services"
)

// Profile serves GET and PUT on the caller's own account.
func Profile(auth *svc.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}

		if c.Request.Method == http.MethodGet {
			profile, err := auth.Me(c.Request.Context(), p.UserID)
			if err != nil {
				c.Error(err)
				return
			}
			respond(c, http.StatusOK, gin.H{"user": profile})
			return
		}

		// PUT
		var body svc.ProfileInput
		if !bindJSON(c, &body) {
			return
		}
		user, err := auth.UpdateProfile(c.Request.Context(), p.UserID, body)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
	}
}
