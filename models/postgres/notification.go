package postgres

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifBookingConfirmed    NotificationType = "booking_confirmed"
	NotifBookingRejected     NotificationType = "booking_rejected"
	NotifJoinRequestReceived NotificationType = "join_request_received"
	NotifJoinRequestAccepted NotificationType = "join_request_accepted"
	NotifJoinRequestRejected NotificationType = "join_request_rejected"
)

/*
 * 'Notification' records are a best-effort side effect of state
 * transitions. A missing notification never means the transition did
 * not happen; the booking/join tables are the source of truth.
 */
type Notification struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	RecipientID string           `gorm:"size:50;not null;index:idx_notifications_recipient" json:"recipient_id"`
	Type        NotificationType `gorm:"size:30;not null" json:"type"`
	Payload     datatypes.JSON   `json:"payload,omitempty"`
	Read        bool             `gorm:"default:false" json:"read"`
	CreatedAt   time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
