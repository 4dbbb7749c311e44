package postgres

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingConfirmed || s == BookingRejected || s == BookingCancelled
}

/*
 * 'BookingRequest' is a reservation proposal for a venue/court/time slot
 * that needs host approval. CapacityFilled counts accepted join requests
 * and is only ever mutated through a store-conditioned increment, never
 * read-then-write (see services/coordinator).
 */
type BookingRequest struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	VenueID        string        `gorm:"size:36;not null;index:idx_booking_requests_venue" json:"venue_id"`
	CourtID        string        `gorm:"size:36;not null" json:"court_id"`
	HostID         string        `gorm:"size:50;not null;index:idx_booking_requests_host" json:"host_id"`
	RequesterID    string        `gorm:"size:50;not null" json:"requester_id"`
	Date           string        `gorm:"size:10;not null" json:"date"`       // YYYY-MM-DD
	StartTime      string        `gorm:"size:5;not null" json:"start_time"`  // HH:MM, venue-local
	DurationMin    int           `gorm:"not null" json:"duration_minutes"`
	CapacityTotal  int           `gorm:"not null" json:"capacity_total"`
	CapacityFilled int           `gorm:"default:0" json:"capacity_filled"`
	Status         BookingStatus `gorm:"size:10;default:'pending';index:idx_booking_requests_status" json:"status"`
	DecisionReason string        `gorm:"size:255" json:"decision_reason,omitempty"`
	CreatedAt      time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	DecidedAt      *time.Time    `json:"decided_at,omitempty"`

	// Optional display enrichment, validated separately from the core
	// record. Kept nullable so a booking is complete without it.
	VenueName  string `gorm:"size:100" json:"venue_name,omitempty"`
	CourtLabel string `gorm:"size:50" json:"court_label,omitempty"`
}

func (b *BookingRequest) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// StartsAt resolves the booking's wall-clock start into an absolute
// timestamp in the given location.
func (b *BookingRequest) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.StartTime, loc)
}
