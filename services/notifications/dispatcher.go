package notifications

import (
	"Rally/errs"
	models "Rally/models/postgres"
	"context"
	"encoding/json"
	"errors"
	"log"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Dispatcher creates Notification records as a best-effort side effect
// of state transitions. A failed insert never blocks or reverses the
// caller's already-committed transition; it comes back as a
// NotifyFailure the caller logs as a secondary warning.
type Dispatcher struct {
	db *gorm.DB
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{db: db}
}

// Notify writes a notification for the recipient. The payload is any
// JSON-marshalable value (reason strings, booking ids...).
func (d *Dispatcher) Notify(ctx context.Context, recipientID string, ntype models.NotificationType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Notification payload for %s not marshalable: %v", recipientID, err)
		return errs.NotifyFailure(err)
	}

	notif := &models.Notification{
		RecipientID: recipientID,
		Type:        ntype,
		Payload:     datatypes.JSON(data),
	}
	if err := d.db.WithContext(ctx).Create(notif).Error; err != nil {
		log.Printf("Failed to deliver %s notification to %s: %v", ntype, recipientID, err)
		return errs.NotifyFailure(err)
	}
	return nil
}

// ListForRecipient returns a user's notifications, newest first.
func (d *Dispatcher) ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]models.Notification, error) {
	q := d.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}

	var notifs []models.Notification
	if err := q.Order("created_at DESC").Find(&notifs).Error; err != nil {
		return nil, errs.Transient(err)
	}
	return notifs, nil
}

// MarkRead flips a notification's read flag. Only the recipient can
// mark their own notifications.
func (d *Dispatcher) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	var notif models.Notification
	err := d.db.WithContext(ctx).First(&notif, "id = ?", notificationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("notification not found")
		}
		return errs.Transient(err)
	}
	if notif.RecipientID != recipientID {
		return errs.Auth("not your notification")
	}
	if notif.Read {
		return nil
	}

	err = d.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).Update("read", true).Error
	if err != nil {
		return errs.Transient(err)
	}
	return nil
}
