package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svc "heirloom/pkg/services"
)

func StartConversation(conversations *svc.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var body struct {
			Title          string `json:"title" binding:"max=200"`
			InitialMessage string `json:"initialMessage"`
		}
		if c.Request.ContentLength != 0 && !bindJSON(c, &body) {
			return
		}
		conv, ex, err := conversations.Start(c.Request.Context(), p, body.Title, body.InitialMessage)
		if err != nil {
			c.Error(err)
			return
		}
		out := gin.H{"conversation": conv}
		if ex != nil {
			out["userMessage"] = ex.UserMessage
			out["aiResponse"] = ex.AIResponse
		}
		respond(c, http.StatusCreated, out)
	}
}

func SendMessage(conversations *svc.ConversationService) gin.HandlerFunc {
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
			Content string `json:"content"`
		}
		if !bindJSON(c, &body) {
			return
		}
		ex, err := conversations.SendMessage(c.Request.Context(), p, id, body.Content)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"userMessage": ex.UserMessage, "aiResponse": ex.AIResponse})
	}
}

func ListConversations(conversations *svc.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		list, err := conversations.List(c.Request.Context(), p.UserID, c.Query("q"))
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"conversations": list})
	}
}

func GetConversation(conversations *svc.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		conv, err := conversations.Get(c.Request.Context(), p.UserID, id)
		if err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"conversation": conv})
	}
}

func DeleteConversation(conversations *svc.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := conversations.Delete(c.Request.Context(), p.UserID, id); err != nil {
			c.Error(err)
			return
		}
		respond(c, http.StatusOK, gin.H{"message": "Conversation deleted"})
	}
}
