package redis

import "time"

// ChatroomBuffer is the flat slack appended after a game's scheduled end
// before its chatroom expires. It does not vary by sport or duration.
const ChatroomBuffer = 30 * time.Minute

/*
 * 'GameChatroom' is the time-boxed group chat spun up when a booking is
 * confirmed. It lives in Redis (volatile by design, the durable chat
 * history is in the conversation/message tables) and is deactivated, not
 * deleted, once ExpiresAt passes.
 */
type GameChatroom struct {
	ID             string    `json:"id"`
	BookingID      string    `json:"booking_id"`
	ConversationID string    `json:"conversation_id"`
	VenueRef       string    `json:"venue_ref"`
	CourtRef       string    `json:"court_ref"`
	HostID         string    `json:"host_id"`
	Participants   []string  `json:"participants"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Active         bool      `json:"active"`
}

// HasParticipant reports membership; participant sets only grow, so a
// true result stays true for the chatroom's lifetime.
func (c *GameChatroom) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Expired reports whether the chatroom's window has passed at 'now'.
func (c *GameChatroom) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
