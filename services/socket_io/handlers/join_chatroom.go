package handlers

import (
	"Rally/services/chatroom"
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

// HandleJoinChatroom joins the client's socket to the room backing a
// game chatroom so broadcasts reach it. Only participants of a still
// active chatroom may join.
func HandleJoinChatroom(manager *chatroom.Manager, client *socket.Socket, username string) func(args ...interface{}) {
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
		if !room.Active {
			client.Emit("error", gin.H{"error": "Chatroom has expired"})
			return
		}
		if !room.HasParticipant(username) {
			client.Emit("error", gin.H{"error": "You are not a participant of this chatroom"})
			return
		}

		client.Join(socket.Room(room.ConversationID))
		log.Printf("User %s joined chatroom %s", username, chatroomID)
		client.Emit("chatroom_joined", gin.H{
			"chatroom_id":     room.ID,
			"conversation_id": room.ConversationID,
			"expires_at":      room.ExpiresAt,
		})
	}
}
