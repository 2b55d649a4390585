package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heirloom/pkg/apperror"
	svc "heirloom/pkg/services"
)

const (
	wsReadLimit  = 1 << 20
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

type wsFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ConversationWS runs chat turns over a websocket for one conversation.
// Client protocol (JSON messages):
//
//	-> {type: "message", content: string}
//	<- {type: "reply", userMessage, aiResponse}
//	<- {type: "error", status: number, message: string}
func ConversationWS(conversations *svc.ConversationService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		// ownership is checked before the upgrade so HTTP callers get a status code
		if _, err := conversations.Get(c.Request.Context(), p.UserID, id); err != nil {
			c.Error(err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})

		ctx := c.Request.Context()
		done := make(chan struct{})
		defer close(done)
		var writeMu sync.Mutex
		write := func(v any) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			return conn.WriteJSON(v)
		}
		go func() {
			ticker := time.NewTicker(wsPingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					writeMu.Lock()
					err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
					writeMu.Unlock()
					if err != nil {
						return
					}
				}
			}
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Info("websocket closed", zap.Error(err))
				}
				return
			}
			var frame wsFrame
			if err := json.Unmarshal(raw, &frame); err != nil || strings.ToLower(frame.Type) != "message" {
				if write(gin.H{"type": "error", "status": http.StatusBadRequest, "message": "expected {type: \"message\", content}"}) != nil {
					return
				}
				continue
			}
			ex, err := conversations.SendMessage(ctx, p, id, frame.Content)
			if err != nil {
				appErr := apperror.From(err)
				if write(gin.H{"type": "error", "status": appErr.Status(), "message": appErr.Message}) != nil {
					return
				}
				continue
			}
			if write(gin.H{"type": "reply", "userMessage": ex.UserMessage, "aiResponse": ex.AIResponse}) != nil {
				return
			}
		}
	}
}
