package models

// RecordState is the soft-delete marker for records that are hidden rather
// than removed.
type RecordState string

const (
	StateActive  RecordState = "active"
	StateDeleted RecordState = "deleted"
)

// All returns every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Conversation{},
		&Message{},
		&Analytics{},
		&LegacyMessage{},
		&KnowledgeEntry{},
		&Document{},
		&RevokedToken{},
	}
}
