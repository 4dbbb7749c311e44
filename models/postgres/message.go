package postgres

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageSystem MessageKind = "system"
	MessageScore  MessageKind = "score"
)

/*
 * 'Message' rows are append-only. Ordering inside a conversation is the
 * server-assigned (created_at, id) pair, never the client send order.
 * The globally unique id is what clients dedupe on after an
 * at-least-once redelivery.
 */
type Message struct {
	ID             string      `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string      `gorm:"size:36;not null;index:idx_messages_conversation" json:"conversation_id"`
	SenderID       string      `gorm:"size:50;not null" json:"sender_id"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	Kind           MessageKind `gorm:"size:10;default:'text'" json:"kind"`
	CreatedAt      time.Time   `gorm:"default:CURRENT_TIMESTAMP;index:idx_messages_created" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Before reports whether m sorts strictly before other in conversation
// order: created_at first, id breaks the tie.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
