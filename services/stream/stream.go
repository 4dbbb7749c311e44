package stream

import (
	"Rally/errs"
	models "Rally/models/postgres"
	redisservice "Rally/services/redis"
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
	subscriberBuffer    = 64
)

// Stream appends messages to a conversation and fans them out to live
// subscribers over Redis pub/sub. Persistence happens first, so a
// subscriber that misses a publish can always catch up via GetHistory;
// combined with redelivery on reconnect that makes delivery
// at-least-once, and receivers dedupe by message id.
type Stream struct {
	db  *gorm.DB
	rdb *redisservice.RedisClient
}

func NewStream(db *gorm.DB, rdb *redisservice.RedisClient) *Stream {
	return &Stream{db: db, rdb: rdb}
}

// Send appends a message with a fresh id and server timestamp and
// returns the persisted record so the sender can reconcile optimistic
// local state against the server-assigned order.
func (s *Stream) Send(ctx context.Context, conversationID, senderID, content string, kind models.MessageKind) (*models.Message, error) {
	if content == "" {
		return nil, errs.Validation("message content is required")
	}
	if kind == "" {
		kind = models.MessageText
	}

	if err := s.conversationExists(ctx, conversationID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Kind:           kind,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, errs.Transient(err)
	}

	// Fan-out is best-effort here: the row is already durable, so a
	// failed publish only delays delivery until the client reloads
	// history or reconnects.
	payload, err := json.Marshal(msg)
	if err == nil {
		err = s.rdb.PublishMessage(ctx, conversationID, payload)
	}
	if err != nil {
		log.Printf("Message %s persisted but publish failed: %v", msg.ID, err)
	}

	return msg, nil
}

// Subscription is a live feed of messages appended to one conversation
// after the subscription started. Cancel (or the context) deterministically
// detaches the underlying transport listener; C is closed afterwards.
type Subscription struct {
	C <-chan models.Message

	once   sync.Once
	cancel func()
}

func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Subscribe opens a live message feed for a conversation. Messages may
// arrive more than once across reconnects; consumers must merge by id
// (see Dedup) before mutating display state.
func (s *Stream) Subscribe(ctx context.Context, conversationID string) (*Subscription, error) {
	if err := s.conversationExists(ctx, conversationID); err != nil {
		return nil, err
	}

	pubsub := s.rdb.SubscribeConversation(ctx, conversationID)
	// Force the SUBSCRIBE round-trip so a broken transport surfaces
	// here instead of as a silently empty channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errs.Transient(err)
	}

	ctx, stop := context.WithCancel(ctx)
	out := make(chan models.Message, subscriberBuffer)

	// The relay goroutine owns the PubSub: whichever way it exits
	// (Cancel, parent context, transport closed) the redis-side
	// subscription is released with it.
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()
		src := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-src:
				if !ok {
					return
				}
				var msg models.Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					log.Printf("Dropping malformed payload on %s: %v", raw.Channel, err)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		C:      out,
		cancel: stop,
	}, nil
}

// GetHistory returns one page of messages in strict oldest-to-newest
// order. beforeID pages backwards ("load earlier messages"): pass the
// id of the oldest message already held to get the page before it.
func (s *Stream) GetHistory(ctx context.Context, conversationID string, limit int, beforeID string) ([]models.Message, error) {
	if err := s.conversationExists(ctx, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	q := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID)

	if beforeID != "" {
		var cursor models.Message
		err := s.db.WithContext(ctx).First(&cursor, "id = ?", beforeID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.NotFound("cursor message not found")
			}
			return nil, errs.Transient(err)
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var page []models.Message
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&page).Error; err != nil {
		return nil, errs.Transient(err)
	}

	// Query walks newest-first for the LIMIT, flip to oldest-first
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

func (s *Stream) conversationExists(ctx context.Context, conversationID string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).Count(&count).Error
	if err != nil {
		return errs.Transient(err)
	}
	if count == 0 {
		return errs.NotFound("conversation not found")
	}
	return nil
}
