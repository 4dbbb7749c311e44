package registry

import (
	"Rally/errs"
	models "Rally/models/postgres"
	"Rally/utils"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry finds-or-creates conversations. Direct (1:1) conversations
// are deduplicated by the store itself: the unique index on the
// normalized pair key decides the winner under concurrency, never a
// client-side check-then-create.
type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// PairKey normalizes an unordered user pair into the canonical
// "min:max" form stored on direct conversations.
func PairKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%s:%s", userA, userB)
}

// GetOrCreateDirect returns the single direct conversation for the
// unordered pair {userA, userB}, creating it when absent. Concurrent
// calls from both participants (in either argument order) all observe
// the same conversation id.
func (r *Registry) GetOrCreateDirect(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, errs.Validation("both user ids are required")
	}
	if userA == userB {
		return nil, errs.Validation("cannot open a direct conversation with yourself")
	}

	pairKey := PairKey(userA, userB)

	existing, err := r.findByPairKey(ctx, pairKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	conv := &models.Conversation{
		Type:      models.ConversationDirect,
		PairKey:   &pairKey,
		CreatedBy: userA,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		return addParticipantsTx(tx, conv.ID, []string{userA, userB})
	})
	if err != nil {
		if utils.IsUniqueViolation(err) {
			// Lost the race: the other participant created it first.
			// Both callers converge on the surviving row.
			winner, ferr := r.findByPairKey(ctx, pairKey)
			if ferr != nil {
				return nil, ferr
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, errs.Transient(err)
	}
	return conv, nil
}

// CreateGroup creates a group/game/channel conversation. No dedup
// constraint applies to these types.
func (r *Registry) CreateGroup(ctx context.Context, ctype models.ConversationType, name string, participants []string, createdBy string) (*models.Conversation, error) {
	if ctype == models.ConversationDirect {
		return nil, errs.Validation("direct conversations go through GetOrCreateDirect")
	}
	if createdBy == "" {
		return nil, errs.Validation("createdBy is required")
	}

	members := append([]string{createdBy}, participants...)

	conv := &models.Conversation{
		Type:      ctype,
		Name:      name,
		CreatedBy: createdBy,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		return addParticipantsTx(tx, conv.ID, members)
	})
	if err != nil {
		return nil, errs.Transient(err)
	}
	return conv, nil
}

// AddParticipants unions the given users into the conversation's
// participant set. Re-adding an existing participant is a no-op.
func (r *Registry) AddParticipants(ctx context.Context, conversationID string, userIDs []string) error {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).First(&conv, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("conversation not found")
		}
		return errs.Transient(err)
	}
	if err := addParticipantsTx(r.db.WithContext(ctx), conversationID, userIDs); err != nil {
		return errs.Transient(err)
	}
	return nil
}

// IsParticipant reports whether a user belongs to a conversation.
func (r *Registry) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, errs.Transient(err)
	}
	return count > 0, nil
}

func (r *Registry) findByPairKey(ctx context.Context, pairKey string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).Preload("Participants").
		Where("pair_key = ?", pairKey).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Transient(err)
	}
	return &conv, nil
}

func addParticipantsTx(tx *gorm.DB, conversationID string, userIDs []string) error {
	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		p := models.ConversationParticipant{
			ConversationID: conversationID,
			UserID:         userID,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}
