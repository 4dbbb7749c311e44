package postgres

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationType string

const (
	ConversationDirect  ConversationType = "direct"
	ConversationGroup   ConversationType = "group"
	ConversationGame    ConversationType = "game"
	ConversationChannel ConversationType = "channel"
)

/*
 * 'Conversation' covers 1:1 chats, free-form groups, per-game chatrooms
 * and sport/location channels. For direct conversations PairKey holds
 * the normalized "min:max" of the two user ids; its unique index is what
 * makes GetOrCreateDirect race-free: the database picks the single
 * winner, not the clients.
 */
type Conversation struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	Type      ConversationType `gorm:"size:10;not null" json:"type"`
	Name      string           `gorm:"size:100" json:"name,omitempty"`
	PairKey   *string          `gorm:"size:101;uniqueIndex:idx_conversations_pair" json:"-"`
	CreatedBy string           `gorm:"size:50;not null" json:"created_by"`
	CreatedAt time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type ConversationParticipant struct {
	ConversationID string    `gorm:"primaryKey;size:36" json:"conversation_id"`
	UserID         string    `gorm:"primaryKey;size:50;index:idx_participants_user" json:"user_id"`
	JoinedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"joined_at"`
}
