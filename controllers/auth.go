package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"heirloom/middleware"
	svc "heirloom/pkg/services"
)

func Register(auth *svc.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body svc.RegisterInput
		if !bindJSON(c, &body) {
			return
		}
		user, err := auth.Register(c.Request.Context(), body)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"message": "User created", "user": user})
	}
}

func Login(auth *svc.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if !bindJSON(c, &body) {
			return
		}
		sess, err := auth.Login(c.Request.Context(), body.Email, body.Password)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"token": sess.Token, "expiresAt": sess.ExpiresAt, "user": sess.User})
	}
}

func Refresh(auth *svc.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Token string `json:"token" binding:"required"`
		}
		if !bindJSON(c, &body) {
			return
		}
		sess, err := auth.Refresh(c.Request.Context(), body.Token)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"token": sess.Token, "expiresAt": sess.ExpiresAt, "user": sess.User})
	}
}

func Me(auth *svc.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		profile, err := auth.Me(c.Request.Context(), p.UserID)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"user": profile})
	}
}

func Logout(auth *svc.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		claims := middleware.CurrentClaims(c)
		if claims == nil {
			respond(c, http.StatusOK, gin.H{"message": "logged out"})
			return
		}
		if err := auth.Logout(c.Request.Context(), p, claims.Expiry()); err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": "logged out"})
	}
}
