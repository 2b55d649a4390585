package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"heirloom/pkg/auth"
	svc "heirloom/pkg/services"
)

// scope returns zero, meaning everyone, for callers allowed to see system totals.
func scope(p auth.Principal) uint {
	if p.Can(auth.CapViewSystemAnalytics) {
		return 0
	}
	return p.UserID
}

// Dashboard is system-wide for admins and personal for everyone else.
func Dashboard(analytics *svc.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		if p.Can(auth.CapViewSystemAnalytics) {
			out, err := analytics.SystemDashboard(c.Request.Context())
			if err != nil {
				c.Error(err)
				return
			}
			respond(c, http.StatusOK, gin.H{"scope": "system", "dashboard": out})
			return
		}
		out, err := analytics.PersonalDashboard(c.Request.Context(), p.UserID)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"scope": "personal", "dashboard": out})
	}
}

func ConversationAnalytics(analytics *svc.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		out, err := analytics.ConversationStats(c.Request.Context(), scope(p))
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"stats": out})
	}
}

func AIUsage(analytics *svc.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		out, err := analytics.AIUsage(c.Request.Context(), scope(p))
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"usage": out})
	}
}

func LegacyEngagement(analytics *svc.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := analytics.LegacyEngagement(c.Request.Context())
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"engagement": out})
	}
}
