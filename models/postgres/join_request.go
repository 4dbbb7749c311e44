package postgres

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JoinStatus string

const (
	JoinPending  JoinStatus = "pending"
	JoinAccepted JoinStatus = "accepted"
	JoinRejected JoinStatus = "rejected"
)

func (s JoinStatus) IsTerminal() bool {
	return s == JoinAccepted || s == JoinRejected
}

/*
 * 'JoinRequest' asks for one open spot in a booking. The partial unique
 * index keeps at most one *pending* request per (booking, requester);
 * terminal rows stay behind as history, so a rejected player may ask
 * again.
 */
type JoinRequest struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	BookingID   string     `gorm:"size:36;not null;index:idx_join_requests_booking" json:"booking_id"`
	RequesterID string     `gorm:"size:50;not null" json:"requester_id"`
	HostID      string     `gorm:"size:50;not null;index:idx_join_requests_host" json:"host_id"`
	Status      JoinStatus `gorm:"size:10;default:'pending'" json:"status"`
	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`

	Booking BookingRequest `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"-"`
}

func (j *JoinRequest) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}

// MigrateJoinRequestIndexes creates the partial unique index that backs
// the one-pending-request-per-requester invariant. AutoMigrate cannot
// express partial indexes, so it runs as raw DDL right after migration.
func MigrateJoinRequestIndexes(db *gorm.DB) error {
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_join_requests_pending
		 ON join_requests (booking_id, requester_id)
		 WHERE status = 'pending'`,
	).Error
}
