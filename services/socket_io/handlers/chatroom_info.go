package handlers

import (
	"Rally/services/chatroom"
	"context"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

// GetChatroomInfo emits a chatroom's participants and expiry back to
// the requesting client.
func GetChatroomInfo(manager *chatroom.Manager, client *socket.Socket, username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 1 {
			client.Emit("error", gin.H{"error": "Missing chatroom id"})
			return
		}
		chatroomID, ok := args[0].(string)
		if !ok {
			client.Emit("error", gin.H{"error": "Invalid chatroom id"})
			return
		}

		room, err := manager.Get(context.Background(), chatroomID)
		if err != nil {
			client.Emit("error", gin.H{"error": "Chatroom does not exist"})
			return
		}
		if !room.HasParticipant(username) {
			client.Emit("error", gin.H{"error": "You are not a participant of this chatroom"})
			return
		}

		client.Emit("chatroom_info", gin.H{
			"chatroom_id":     room.ID,
			"booking_id":      room.BookingID,
			"conversation_id": room.ConversationID,
			"host_id":         room.HostID,
			"participants":    room.Participants,
			"created_at":      room.CreatedAt,
			"expires_at":      room.ExpiresAt,
			"active":          room.Active,
		})
	}
}
