package models

import (
	"encoding/json"
	"strings"
	"time"
)

type MessageType string

const (
	MessageUser MessageType = "USER"
	MessageBot  MessageType = "BOT"
)

// MarshalJSON writes the type lower-cased ("user", "bot"); storage keeps the
// upper-case value.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToLower(string(t)))
}

func (t *MessageType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = MessageType(strings.ToUpper(s))
	return nil
}

// Message is immutable once written.
type Message struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	ConversationID uint        `gorm:"index;not null" json:"conversationId"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	Type           MessageType `gorm:"size:10;not null" json:"type"`
	AIModel        string      `gorm:"size:80" json:"aiModel,omitempty"`
	TokensUsed     int         `gorm:"not null;default:0" json:"tokensUsed"`
	ResponseTime   int64       `gorm:"not null;default:0" json:"responseTime"`
	CreatedAt      time.Time   `gorm:"index" json:"createdAt"`
}
