package handlers

import (
	models "Rally/models/postgres"
	"Rally/services/chatroom"
	socketio_types "Rally/services/socket_io/types"
	"Rally/services/stream"
	"context"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

// HandleChatMessage persists a chat message through the stream (which
// also publishes it for other nodes) and broadcasts it to the local
// room. Clients may therefore see a message twice; they dedupe by id.
func HandleChatMessage(manager *chatroom.Manager, msgStream *stream.Stream,
	sio *socketio_types.SocketServer, client *socket.Socket, username string) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 2 {
			client.Emit("error", gin.H{"error": "Expected chatroom id and message"})
			return
		}
		chatroomID, ok := args[0].(string)
		if !ok {
			client.Emit("error", gin.H{"error": "Invalid chatroom id"})
			return
		}
		content, ok := args[1].(string)
		if !ok {
			client.Emit("error", gin.H{"error": "Invalid message format"})
			return
		}

		kind := models.MessageText
		if len(args) > 2 {
			if k, ok := args[2].(string); ok && k != "" {
				kind = models.MessageKind(k)
			}
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
			client.Emit("error", gin.H{"error": "You must join the chatroom before sending messages"})
			return
		}

		msg, err := msgStream.Send(context.Background(), room.ConversationID, username, content, kind)
		if err != nil {
			client.Emit("error", gin.H{"error": "Could not send message"})
			return
		}

		sio.Sio_server.To(socket.Room(room.ConversationID)).Emit("new_chat_message", gin.H{
			"id":              msg.ID,
			"chatroom_id":     room.ID,
			"conversation_id": msg.ConversationID,
			"sender_id":       msg.SenderID,
			"content":         msg.Content,
			"kind":            msg.Kind,
			"created_at":      msg.CreatedAt,
		})
	}
}
