package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svc "heirloom/pkg/services"
)

func ListLegacy(legacy *svc.LegacyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		list, err := legacy.List(c.Request.Context(), p, c.Query("category"))
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"messages": list})
	}
}

func GetLegacy(legacy *svc.LegacyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		m, err := legacy.Get(c.Request.Context(), p, id)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": m})
	}
}

func DailyWisdom(legacy *svc.LegacyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		m, err := legacy.DailyWisdom(c.Request.Context(), p)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"wisdom": m})
	}
}

func CreateLegacy(legacy *svc.LegacyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var body svc.LegacyInput
		if !bindJSON(c, &body) {
			return
		}
		m, err := legacy.Create(c.Request.Context(), p, body)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"message": m})
	}
}

func UpdateLegacy(legacy *svc.LegacyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var body svc.LegacyInput
		if !bindJSON(c, &body) {
			return
		}
		m, err := legacy.Update(c.Request.Context(), p, id, body)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": m})
	}
}

func DeleteLegacy(legacy *svc.LegacyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := legacy.Delete(c.Request.Context(), p, id); err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"deleted": id})
	}
}
