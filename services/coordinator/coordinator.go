package coordinator

import (
	"Rally/errs"
	models "Rally/models/postgres"
	redis_models "Rally/models/redis"
	"Rally/utils"
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
)

// ChatroomLifecycle is the slice of the chatroom manager the
// coordinator drives on confirmed bookings and accepted joins.
type ChatroomLifecycle interface {
	CreateForBooking(ctx context.Context, booking *models.BookingRequest) (*redis_models.GameChatroom, error)
	GetForBooking(ctx context.Context, bookingID string) (*redis_models.GameChatroom, error)
	AddParticipant(ctx context.Context, chatroomID, userID string) (*redis_models.GameChatroom, error)
}

// Notifier delivers best-effort notifications on terminal transitions.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, ntype models.NotificationType, payload any) error
}

/*
 * Coordinator owns the booking status state machine (pending →
 * confirmed/rejected/cancelled) and the join-request sub-flow (pending →
 * accepted/rejected). Every decision is a conditional update keyed on
 * the expected pre-state, so two racing hosts (or a host racing a
 * retry) linearize in the store: one wins, the rest get a ConflictError.
 */
type Coordinator struct {
	db        *gorm.DB
	chatrooms ChatroomLifecycle
	notifier  Notifier
}

func NewCoordinator(db *gorm.DB, chatrooms ChatroomLifecycle, notifier Notifier) *Coordinator {
	return &Coordinator{db: db, chatrooms: chatrooms, notifier: notifier}
}

type CreateBookingInput struct {
	VenueID     string `json:"venue_id"`
	CourtID     string `json:"court_id"`
	HostID      string `json:"host_id"`
	RequesterID string `json:"requester_id"`
	Date        string `json:"date"`       // YYYY-MM-DD
	StartTime   string `json:"start_time"` // HH:MM
	DurationMin int    `json:"duration_minutes"`
	Capacity    int    `json:"capacity_total"`

	// Optional display enrichment; missing values never invalidate the
	// core record.
	VenueName  string `json:"venue_name"`
	CourtLabel string `json:"court_label"`
}

// DecisionOutcome is the result of a booking decision. NotifyWarning
// and ChatroomWarning report failed side effects of a transition that
// is already committed; they are never a reason to retry the decision.
type DecisionOutcome struct {
	Booking         *models.BookingRequest
	Chatroom        *redis_models.GameChatroom
	NotifyWarning   error
	ChatroomWarning error
}

// JoinOutcome is the result of join-request operations.
type JoinOutcome struct {
	Request       *models.JoinRequest
	NotifyWarning error
}

// CreateBookingRequest validates and persists a new pending booking.
func (c *Coordinator) CreateBookingRequest(ctx context.Context, in CreateBookingInput) (*models.BookingRequest, error) {
	if in.VenueID == "" || in.CourtID == "" || in.HostID == "" || in.RequesterID == "" {
		return nil, errs.Validation("venue, court, host and requester are required")
	}
	if in.Capacity < 1 {
		return nil, errs.Validation("capacity must be at least 1")
	}
	if in.DurationMin < 1 {
		return nil, errs.Validation("time window is invalid: end precedes start")
	}

	booking := &models.BookingRequest{
		VenueID:       in.VenueID,
		CourtID:       in.CourtID,
		HostID:        in.HostID,
		RequesterID:   in.RequesterID,
		Date:          in.Date,
		StartTime:     in.StartTime,
		DurationMin:   in.DurationMin,
		CapacityTotal: in.Capacity,
		Status:        models.BookingPending,
		VenueName:     in.VenueName,
		CourtLabel:    in.CourtLabel,
	}
	if _, err := booking.StartsAt(time.Local); err != nil {
		return nil, errs.Validation("date must be YYYY-MM-DD and start time HH:MM")
	}

	err := c.retryTransient(ctx, func() error {
		if err := c.db.WithContext(ctx).Create(booking).Error; err != nil {
			return errs.Transient(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// GetBookingRequest loads one booking.
func (c *Coordinator) GetBookingRequest(ctx context.Context, bookingID string) (*models.BookingRequest, error) {
	return c.loadBooking(ctx, bookingID)
}

// RespondToBookingRequest decides a pending booking. Only the host may
// decide; deciding twice (or racing another decision) yields
// ConflictError("already decided"). On confirm the chatroom is created
// before the notification goes out; neither side effect can undo the
// committed transition.
func (c *Coordinator) RespondToBookingRequest(ctx context.Context, bookingID, decision, reason, callerID string) (*DecisionOutcome, error) {
	booking, err := c.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.HostID != callerID {
		return nil, errs.Auth("only the host can decide a booking request")
	}

	var newStatus models.BookingStatus
	var notifType models.NotificationType
	switch decision {
	case "confirm":
		newStatus = models.BookingConfirmed
		notifType = models.NotifBookingConfirmed
	case "reject":
		newStatus = models.BookingRejected
		notifType = models.NotifBookingRejected
	default:
		return nil, errs.Validation("decision must be confirm or reject")
	}

	now := time.Now()
	err = c.retryTransient(ctx, func() error {
		res := c.db.WithContext(ctx).Model(&models.BookingRequest{}).
			Where("id = ? AND status = ?", bookingID, models.BookingPending).
			Updates(map[string]any{
				"status":          newStatus,
				"decided_at":      now,
				"decision_reason": reason,
			})
		if res.Error != nil {
			return errs.Transient(res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.Conflict(errs.ReasonAlreadyDecided)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Status = newStatus
	booking.DecidedAt = &now
	booking.DecisionReason = reason

	outcome := &DecisionOutcome{Booking: booking}

	if newStatus == models.BookingConfirmed {
		room, err := c.chatrooms.CreateForBooking(ctx, booking)
		if err != nil {
			// The transition is committed; CreateForBooking is
			// idempotent and a later retry converges on one room.
			log.Printf("Booking %s confirmed but chatroom creation failed: %v", bookingID, err)
			outcome.ChatroomWarning = err
		} else {
			outcome.Chatroom = room
		}
	}

	payload := map[string]any{
		"booking_id": booking.ID,
		"venue_id":   booking.VenueID,
		"date":       booking.Date,
		"start_time": booking.StartTime,
	}
	if reason != "" {
		payload["reason"] = reason
	}
	if err := c.notifier.Notify(ctx, booking.RequesterID, notifType, payload); err != nil {
		outcome.NotifyWarning = err
	}
	return outcome, nil
}

// CancelBookingRequest cancels a still-pending booking. The host (or
// the system, on venue closure) is the only legitimate caller; a
// decided booking can no longer be cancelled.
func (c *Coordinator) CancelBookingRequest(ctx context.Context, bookingID, callerID string) (*models.BookingRequest, error) {
	booking, err := c.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if callerID != "" && booking.HostID != callerID && booking.RequesterID != callerID {
		return nil, errs.Auth("only the host or requester can cancel a booking request")
	}

	now := time.Now()
	err = c.retryTransient(ctx, func() error {
		res := c.db.WithContext(ctx).Model(&models.BookingRequest{}).
			Where("id = ? AND status = ?", bookingID, models.BookingPending).
			Updates(map[string]any{"status": models.BookingCancelled, "decided_at": now})
		if res.Error != nil {
			return errs.Transient(res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.Conflict(errs.ReasonAlreadyDecided)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Status = models.BookingCancelled
	booking.DecidedAt = &now
	return booking, nil
}

// SendJoinRequest files a pending request for one spot. Fullness is
// checked at evaluation time; the binding capacity check happens again
// inside AcceptJoinRequest, where it is store-enforced.
func (c *Coordinator) SendJoinRequest(ctx context.Context, bookingID, requesterID string) (*JoinOutcome, error) {
	if requesterID == "" {
		return nil, errs.Validation("requester is required")
	}

	booking, err := c.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingRejected || booking.Status == models.BookingCancelled {
		return nil, errs.Conflict(errs.ReasonBookingClosed)
	}
	if booking.HostID == requesterID {
		return nil, errs.Validation("the host already holds a spot")
	}
	if booking.CapacityFilled >= booking.CapacityTotal {
		return nil, errs.Conflict(errs.ReasonGameFull)
	}

	jr := &models.JoinRequest{
		BookingID:   bookingID,
		RequesterID: requesterID,
		HostID:      booking.HostID,
		Status:      models.JoinPending,
	}
	err = c.retryTransient(ctx, func() error {
		if err := c.db.WithContext(ctx).Create(jr).Error; err != nil {
			if utils.IsUniqueViolation(err) {
				// Partial unique index: one pending request per
				// (booking, requester), enforced by the store.
				return errs.Conflict(errs.ReasonDuplicate)
			}
			return errs.Transient(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := &JoinOutcome{Request: jr}
	payload := map[string]any{"booking_id": bookingID, "requester_id": requesterID, "join_request_id": jr.ID}
	if err := c.notifier.Notify(ctx, booking.HostID, models.NotifJoinRequestReceived, payload); err != nil {
		outcome.NotifyWarning = err
	}
	return outcome, nil
}

// AcceptJoinRequest flips a pending join request to accepted and, in
// the same transaction, increments the parent booking's filled counter
// conditioned on capacity. When N requests race for the last spot the
// store serializes the increments: exactly one commits, the rest roll
// back with ConflictError("game full").
func (c *Coordinator) AcceptJoinRequest(ctx context.Context, joinRequestID, callerID string) (*JoinOutcome, error) {
	jr, err := c.loadJoinRequest(ctx, joinRequestID)
	if err != nil {
		return nil, err
	}
	if jr.HostID != callerID {
		return nil, errs.Auth("only the host can decide a join request")
	}
	if jr.Status != models.JoinPending {
		return nil, errs.Conflict(errs.ReasonAlreadyDecided)
	}

	now := time.Now()
	err = c.retryTransient(ctx, func() error {
		txErr := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			flip := tx.Model(&models.JoinRequest{}).
				Where("id = ? AND status = ?", joinRequestID, models.JoinPending).
				Updates(map[string]any{"status": models.JoinAccepted, "decided_at": now})
			if flip.Error != nil {
				return errs.Transient(flip.Error)
			}
			if flip.RowsAffected == 0 {
				return errs.Conflict(errs.ReasonAlreadyDecided)
			}

			// Compare-and-increment: the WHERE clause is the guard, a
			// plain read-then-write would readmit the lost-update race.
			inc := tx.Model(&models.BookingRequest{}).
				Where("id = ? AND capacity_filled < capacity_total", jr.BookingID).
				UpdateColumn("capacity_filled", gorm.Expr("capacity_filled + 1"))
			if inc.Error != nil {
				return errs.Transient(inc.Error)
			}
			if inc.RowsAffected == 0 {
				return errs.Conflict(errs.ReasonGameFull)
			}
			return nil
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	jr.Status = models.JoinAccepted
	jr.DecidedAt = &now

	// Side effects after commit: chatroom membership and notification.
	// Both are repairable and never unwind the accepted request.
	if room, rerr := c.chatrooms.GetForBooking(ctx, jr.BookingID); rerr == nil {
		if _, aerr := c.chatrooms.AddParticipant(ctx, room.ID, jr.RequesterID); aerr != nil {
			log.Printf("Join request %s accepted but chatroom join failed: %v", jr.ID, aerr)
		}
	} else if !errs.IsNotFound(rerr) {
		log.Printf("Join request %s accepted but chatroom lookup failed: %v", jr.ID, rerr)
	}

	outcome := &JoinOutcome{Request: jr}
	payload := map[string]any{"booking_id": jr.BookingID, "join_request_id": jr.ID}
	if err := c.notifier.Notify(ctx, jr.RequesterID, models.NotifJoinRequestAccepted, payload); err != nil {
		outcome.NotifyWarning = err
	}
	return outcome, nil
}

// RejectJoinRequest flips a pending join request to rejected. The
// booking's capacity is untouched.
func (c *Coordinator) RejectJoinRequest(ctx context.Context, joinRequestID, callerID string) (*JoinOutcome, error) {
	jr, err := c.loadJoinRequest(ctx, joinRequestID)
	if err != nil {
		return nil, err
	}
	if jr.HostID != callerID {
		return nil, errs.Auth("only the host can decide a join request")
	}
	if jr.Status != models.JoinPending {
		return nil, errs.Conflict(errs.ReasonAlreadyDecided)
	}

	now := time.Now()
	err = c.retryTransient(ctx, func() error {
		res := c.db.WithContext(ctx).Model(&models.JoinRequest{}).
			Where("id = ? AND status = ?", joinRequestID, models.JoinPending).
			Updates(map[string]any{"status": models.JoinRejected, "decided_at": now})
		if res.Error != nil {
			return errs.Transient(res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.Conflict(errs.ReasonAlreadyDecided)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	jr.Status = models.JoinRejected
	jr.DecidedAt = &now

	outcome := &JoinOutcome{Request: jr}
	payload := map[string]any{"booking_id": jr.BookingID, "join_request_id": jr.ID}
	if err := c.notifier.Notify(ctx, jr.RequesterID, models.NotifJoinRequestRejected, payload); err != nil {
		outcome.NotifyWarning = err
	}
	return outcome, nil
}

// ListJoinRequestsForBooking is the host's inbox for one booking.
func (c *Coordinator) ListJoinRequestsForBooking(ctx context.Context, bookingID, callerID string) ([]models.JoinRequest, error) {
	booking, err := c.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.HostID != callerID {
		return nil, errs.Auth("only the host can list join requests")
	}

	var requests []models.JoinRequest
	err = c.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").Find(&requests).Error
	if err != nil {
		return nil, errs.Transient(err)
	}
	return requests, nil
}

func (c *Coordinator) loadBooking(ctx context.Context, bookingID string) (*models.BookingRequest, error) {
	var booking models.BookingRequest
	err := c.db.WithContext(ctx).First(&booking, "id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("booking request not found")
		}
		return nil, errs.Transient(err)
	}
	return &booking, nil
}

func (c *Coordinator) loadJoinRequest(ctx context.Context, joinRequestID string) (*models.JoinRequest, error) {
	var jr models.JoinRequest
	err := c.db.WithContext(ctx).First(&jr, "id = ?", joinRequestID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("join request not found")
		}
		return nil, errs.Transient(err)
	}
	return &jr, nil
}

const maxStoreAttempts = 3

// retryTransient retries fn on TransientStoreError with doubling
// backoff. Business conflicts and validation errors pass through
// untouched on the first attempt.
func (c *Coordinator) retryTransient(ctx context.Context, fn func() error) error {
	backoff := 50 * time.Millisecond
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !errs.IsTransient(err) || attempt == maxStoreAttempts {
			return err
		}
		log.Printf("Transient store error (attempt %d/%d), retrying: %v", attempt, maxStoreAttempts, err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return err
		}
		backoff *= 2
	}
}
