package redis

import (
	redis_models "Rally/models/redis"
	redis_utils "Rally/services/redis/utils"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Chatroom keys outlive the room's expiry by this much so a deactivated
// room can still be inspected before Redis reclaims it.
const chatroomKeyTTL = 7 * 24 * time.Hour

// RedisClient handles Redis operations
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client instance. Addr may be a
// plain host:port or a full redis:// URL (managed deployments).
func NewRedisClient(addr string, db int) *RedisClient {
	var client *redis.Client
	if strings.Contains(addr, "://") {
		log.Println("Connecting to remote Redis...")
		opt, err := redis.ParseURL(addr)
		if err != nil {
			panic("Error parsing Redis URL")
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		})
	}
	return &RedisClient{client: client}
}

// Client exposes the raw go-redis client for pub/sub consumers.
func (rc *RedisClient) Client() *redis.Client {
	return rc.client
}

// SaveChatroom stores a chatroom's full state.
// Key format: "chatroom:{id}"
func (rc *RedisClient) SaveChatroom(ctx context.Context, room *redis_models.GameChatroom) error {
	key := redis_utils.FormatChatroomKey(room.ID)
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("error marshaling chatroom data: %v", err)
	}
	return rc.client.Set(ctx, key, data, chatroomKeyTTL).Err()
}

// GetChatroom retrieves a chatroom by id.
// Key format: "chatroom:{id}"
func (rc *RedisClient) GetChatroom(ctx context.Context, chatroomID string) (*redis_models.GameChatroom, error) {
	key := redis_utils.FormatChatroomKey(chatroomID)
	data, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting chatroom data: %v", err)
	}

	var room redis_models.GameChatroom
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("error unmarshaling chatroom data: %v", err)
	}
	return &room, nil
}

// ReserveBookingChatroom claims the one-chatroom-per-booking slot with
// SETNX. Returns (true, chatroomID) when this caller won the slot and
// (false, existingID) when some earlier call already created the room.
func (rc *RedisClient) ReserveBookingChatroom(ctx context.Context, bookingID, chatroomID string) (bool, string, error) {
	key := redis_utils.FormatBookingChatroomKey(bookingID)
	ok, err := rc.client.SetNX(ctx, key, chatroomID, chatroomKeyTTL).Result()
	if err != nil {
		return false, "", fmt.Errorf("error reserving chatroom for booking %s: %v", bookingID, err)
	}
	if ok {
		return true, chatroomID, nil
	}
	existing, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		return false, "", fmt.Errorf("error reading chatroom reservation for booking %s: %v", bookingID, err)
	}
	return false, existing, nil
}

// GetBookingChatroomID returns the chatroom id reserved for a booking,
// or "" when none exists.
func (rc *RedisClient) GetBookingChatroomID(ctx context.Context, bookingID string) (string, error) {
	id, err := rc.client.Get(ctx, redis_utils.FormatBookingChatroomKey(bookingID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

// AddUserChatroom indexes a chatroom under a participant.
// Key format: "user:{id}:chatrooms"
func (rc *RedisClient) AddUserChatroom(ctx context.Context, userID, chatroomID string) error {
	return rc.client.SAdd(ctx, redis_utils.FormatUserChatroomsKey(userID), chatroomID).Err()
}

// GetUserChatroomIDs returns every chatroom id a user has ever joined;
// callers filter by the room's Active flag.
func (rc *RedisClient) GetUserChatroomIDs(ctx context.Context, userID string) ([]string, error) {
	return rc.client.SMembers(ctx, redis_utils.FormatUserChatroomsKey(userID)).Result()
}

// AddActiveChatroom registers a chatroom id in the sweep index.
func (rc *RedisClient) AddActiveChatroom(ctx context.Context, chatroomID string) error {
	return rc.client.SAdd(ctx, redis_utils.ActiveChatroomsKey(), chatroomID).Err()
}

// GetActiveChatroomIDs returns the ids currently in the sweep index.
func (rc *RedisClient) GetActiveChatroomIDs(ctx context.Context) ([]string, error) {
	return rc.client.SMembers(ctx, redis_utils.ActiveChatroomsKey()).Result()
}

// RemoveActiveChatroom drops a chatroom id from the sweep index.
func (rc *RedisClient) RemoveActiveChatroom(ctx context.Context, chatroomID string) error {
	return rc.client.SRem(ctx, redis_utils.ActiveChatroomsKey(), chatroomID).Err()
}

// PublishMessage fans a payload out on a conversation's channel.
func (rc *RedisClient) PublishMessage(ctx context.Context, conversationID string, payload []byte) error {
	return rc.client.Publish(ctx, redis_utils.FormatConversationChannel(conversationID), payload).Err()
}

// SubscribeConversation opens a pub/sub subscription on a
// conversation's channel. The caller owns the returned PubSub and must
// Close it to detach the underlying listener.
func (rc *RedisClient) SubscribeConversation(ctx context.Context, conversationID string) *redis.PubSub {
	return rc.client.Subscribe(ctx, redis_utils.FormatConversationChannel(conversationID))
}

// PSubscribeAllConversations opens a pattern subscription over every
// conversation channel. The socket.io bridge uses it to relay messages
// published on other nodes into local socket rooms.
func (rc *RedisClient) PSubscribeAllConversations(ctx context.Context) *redis.PubSub {
	return rc.client.PSubscribe(ctx, redis_utils.FormatConversationChannel("*"))
}

// CleanupKeys removes the specified keys from Redis
func (rc *RedisClient) CleanupKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := rc.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to cleanup Redis key %s: %v", key, err)
		}
	}
	return nil
}
