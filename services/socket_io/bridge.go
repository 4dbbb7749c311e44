package socket_io

import (
	"Rally/models/postgres"
	redisservice "Rally/services/redis"
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/zishang520/socket.io/v2/socket"
)

// runBridge consumes the per-conversation redis channels and re-emits each
// message into the matching local socket room. Delivery is at least once:
// a socket that also saw the local emit from HandleChatMessage will receive
// the message twice and is expected to dedup by message id.
func (sio *MySocketServer) runBridge(ctx context.Context, redisClient *redisservice.RedisClient) {
	pubsub := redisClient.PSubscribeAllConversations(ctx)
	defer pubsub.Close()

	src := pubsub.Channel()
	for {
		var msg *redis.Message
		var ok bool
		select {
		case <-ctx.Done():
			return
		case msg, ok = <-src:
			if !ok {
				return
			}
		}

		conversationID := conversationFromChannel(msg.Channel)
		if conversationID == "" {
			continue
		}

		var m postgres.Message
		if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
			log.Printf("Bridge: dropping malformed payload on %s: %v", msg.Channel, err)
			continue
		}

		sio.Sio_server.To(socket.Room(conversationID)).Emit("new_chat_message", gin.H{
			"id":              m.ID,
			"conversation_id": m.ConversationID,
			"sender_id":       m.SenderID,
			"content":         m.Content,
			"kind":            m.Kind,
			"created_at":      m.CreatedAt,
		})
	}
}

// conversationFromChannel extracts the id from "conversation:{id}:messages".
func conversationFromChannel(channel string) string {
	parts := strings.Split(channel, ":")
	if len(parts) != 3 || parts[0] != "conversation" || parts[2] != "messages" {
		return ""
	}
	return parts[1]
}
