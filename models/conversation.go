package models

import "time"

const DefaultConversationTitle = "New Conversation"

type Conversation struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    uint        `gorm:"not null;index:idx_conversations_user_state" json:"userId"`
	Title     string      `gorm:"size:200;not null" json:"title"`
	State     RecordState `gorm:"size:10;not null;index:idx_conversations_user_state" json:"-"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `gorm:"index" json:"updatedAt"`
	Messages  []Message   `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

func (c *Conversation) Active() bool { return c.State == StateActive }

// HasDefaultTitle reports whether the title should still be replaced by one
// derived from the first message.
func (c *Conversation) HasDefaultTitle() bool {
	return c.Title == "" || c.Title == DefaultConversationTitle
}
