package chatroom

import (
	"Rally/errs"
	"Rally/models/postgres"
	redis_models "Rally/models/redis"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Store is the chatroom repository, injected into the Manager on
// construction so every call path gets it explicitly.
type Store interface {
	SaveChatroom(ctx context.Context, room *redis_models.GameChatroom) error
	GetChatroom(ctx context.Context, chatroomID string) (*redis_models.GameChatroom, error)
	ReserveBookingChatroom(ctx context.Context, bookingID, chatroomID string) (bool, string, error)
	GetBookingChatroomID(ctx context.Context, bookingID string) (string, error)
	AddUserChatroom(ctx context.Context, userID, chatroomID string) error
	GetUserChatroomIDs(ctx context.Context, userID string) ([]string, error)
	AddActiveChatroom(ctx context.Context, chatroomID string) error
	GetActiveChatroomIDs(ctx context.Context) ([]string, error)
	RemoveActiveChatroom(ctx context.Context, chatroomID string) error
}

// ConversationRegistry is the slice of the registry service the manager
// needs: every chatroom is backed by a 'game' conversation that carries
// its message traffic.
type ConversationRegistry interface {
	CreateGroup(ctx context.Context, ctype postgres.ConversationType, name string, participants []string, createdBy string) (*postgres.Conversation, error)
	AddParticipants(ctx context.Context, conversationID string, userIDs []string) error
}

// Manager owns the chatroom lifecycle: exactly-once creation per
// confirmed booking, participant growth, and expiry sweeping.
type Manager struct {
	store    Store
	registry ConversationRegistry
	loc      *time.Location
}

func NewManager(store Store, registry ConversationRegistry) *Manager {
	return &Manager{store: store, registry: registry, loc: time.Local}
}

// SetLocation overrides the wall-clock location used to resolve booking
// start times (tests pin it to UTC).
func (m *Manager) SetLocation(loc *time.Location) {
	if loc != nil {
		m.loc = loc
	}
}

// ExpiryFor computes the chatroom's absolute expiry: game start plus
// duration plus the flat buffer.
func (m *Manager) ExpiryFor(booking *postgres.BookingRequest) (time.Time, error) {
	start, err := booking.StartsAt(m.loc)
	if err != nil {
		return time.Time{}, errs.Validation("invalid booking start time")
	}
	return start.Add(time.Duration(booking.DurationMin) * time.Minute).Add(redis_models.ChatroomBuffer), nil
}

// CreateForBooking creates the chatroom for a just-confirmed booking.
// Idempotent: the SETNX reservation in the store picks a single winner,
// every other call (retried transitions included) gets the existing
// room back instead of a duplicate.
func (m *Manager) CreateForBooking(ctx context.Context, booking *postgres.BookingRequest) (*redis_models.GameChatroom, error) {
	if booking.Status != postgres.BookingConfirmed {
		return nil, errs.Validation("chatrooms are only created for confirmed bookings")
	}

	expiresAt, err := m.ExpiryFor(booking)
	if err != nil {
		return nil, err
	}

	roomID := uuid.NewString()
	won, reservedID, err := m.store.ReserveBookingChatroom(ctx, booking.ID, roomID)
	if err != nil {
		return nil, errs.Transient(err)
	}
	if !won {
		existing, err := m.store.GetChatroom(ctx, reservedID)
		if err != nil {
			return nil, errs.Transient(err)
		}
		if existing != nil {
			return existing, nil
		}
		// Reservation exists but the room was never written (creator
		// crashed mid-flight). Repair under the reserved id.
		roomID = reservedID
	}

	name := chatroomName(booking)
	conv, err := m.registry.CreateGroup(ctx, postgres.ConversationGame, name, []string{booking.HostID}, booking.HostID)
	if err != nil {
		return nil, err
	}

	room := &redis_models.GameChatroom{
		ID:             roomID,
		BookingID:      booking.ID,
		ConversationID: conv.ID,
		VenueRef:       booking.VenueID,
		CourtRef:       booking.CourtID,
		HostID:         booking.HostID,
		Participants:   []string{booking.HostID},
		CreatedAt:      time.Now(),
		ExpiresAt:      expiresAt,
		Active:         true,
	}

	if err := m.store.SaveChatroom(ctx, room); err != nil {
		return nil, errs.Transient(err)
	}
	if err := m.store.AddActiveChatroom(ctx, room.ID); err != nil {
		return nil, errs.Transient(err)
	}
	if err := m.store.AddUserChatroom(ctx, booking.HostID, room.ID); err != nil {
		return nil, errs.Transient(err)
	}

	log.Printf("Chatroom %s created for booking %s (expires %s)", room.ID, booking.ID, room.ExpiresAt)
	return room, nil
}

// Get loads one chatroom by id.
func (m *Manager) Get(ctx context.Context, chatroomID string) (*redis_models.GameChatroom, error) {
	room, err := m.store.GetChatroom(ctx, chatroomID)
	if err != nil {
		return nil, errs.Transient(err)
	}
	if room == nil {
		return nil, errs.NotFound("chatroom not found")
	}
	return room, nil
}

// GetForBooking returns the chatroom created for a booking, or a
// NotFound error when the booking never got one.
func (m *Manager) GetForBooking(ctx context.Context, bookingID string) (*redis_models.GameChatroom, error) {
	id, err := m.store.GetBookingChatroomID(ctx, bookingID)
	if err != nil {
		return nil, errs.Transient(err)
	}
	if id == "" {
		return nil, errs.NotFound("no chatroom for booking")
	}
	room, err := m.store.GetChatroom(ctx, id)
	if err != nil {
		return nil, errs.Transient(err)
	}
	if room == nil {
		return nil, errs.NotFound("no chatroom for booking")
	}
	return room, nil
}

// AddParticipant appends a user to the chatroom. No-op when the user is
// already in; participant sets only grow.
func (m *Manager) AddParticipant(ctx context.Context, chatroomID, userID string) (*redis_models.GameChatroom, error) {
	room, err := m.store.GetChatroom(ctx, chatroomID)
	if err != nil {
		return nil, errs.Transient(err)
	}
	if room == nil {
		return nil, errs.NotFound("chatroom not found")
	}
	if room.HasParticipant(userID) {
		return room, nil
	}

	room.Participants = append(room.Participants, userID)
	if err := m.store.SaveChatroom(ctx, room); err != nil {
		return nil, errs.Transient(err)
	}
	if err := m.store.AddUserChatroom(ctx, userID, room.ID); err != nil {
		return nil, errs.Transient(err)
	}
	if err := m.registry.AddParticipants(ctx, room.ConversationID, []string{userID}); err != nil {
		return nil, err
	}
	return room, nil
}

// GetActiveChatroomsForUser lists the user's chatrooms that are still
// active. It sweeps first so callers never see rooms that are already
// past their expiry.
func (m *Manager) GetActiveChatroomsForUser(ctx context.Context, userID string) ([]*redis_models.GameChatroom, error) {
	if _, err := m.SweepExpired(ctx, time.Now()); err != nil {
		return nil, err
	}

	ids, err := m.store.GetUserChatroomIDs(ctx, userID)
	if err != nil {
		return nil, errs.Transient(err)
	}

	rooms := []*redis_models.GameChatroom{}
	for _, id := range ids {
		room, err := m.store.GetChatroom(ctx, id)
		if err != nil {
			return nil, errs.Transient(err)
		}
		if room != nil && room.Active {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

// SweepExpired deactivates every chatroom whose expiry has passed.
// Idempotent and safe to run concurrently or redundantly; it is wired
// both to a background ticker and to the read path above. Returns the
// number of rooms deactivated.
func (m *Manager) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := m.store.GetActiveChatroomIDs(ctx)
	if err != nil {
		return 0, errs.Transient(err)
	}

	swept := 0
	for _, id := range ids {
		room, err := m.store.GetChatroom(ctx, id)
		if err != nil {
			return swept, errs.Transient(err)
		}
		if room == nil {
			// Room key evicted, drop the dangling index entry
			if err := m.store.RemoveActiveChatroom(ctx, id); err != nil {
				return swept, errs.Transient(err)
			}
			continue
		}
		if !room.Expired(now) {
			continue
		}

		room.Active = false
		if err := m.store.SaveChatroom(ctx, room); err != nil {
			return swept, errs.Transient(err)
		}
		if err := m.store.RemoveActiveChatroom(ctx, id); err != nil {
			return swept, errs.Transient(err)
		}
		swept++
	}

	if swept > 0 {
		log.Printf("Chatroom sweep deactivated %d room(s)", swept)
	}
	return swept, nil
}

func chatroomName(booking *postgres.BookingRequest) string {
	venue := booking.VenueName
	if venue == "" {
		venue = booking.VenueID
	}
	court := booking.CourtLabel
	if court == "" {
		court = booking.CourtID
	}
	return fmt.Sprintf("%s · %s · %s %s", venue, court, booking.Date, booking.StartTime)
}
