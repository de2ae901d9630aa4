package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/quocanhngo/chatcore/internal/model"
	"gorm.io/gorm"
)

// DeliveryRepository tracks per-recipient delivery and read state.
type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// createStatuses inserts one delivered row per recipient. Delivery means
// persisted; there is no client acknowledgement step.
func createStatuses(tx *gorm.DB, msg *model.Message, recipients []uuid.UUID, now time.Time) error {
	if len(recipients) == 0 {
		return nil
	}

	statuses := make([]model.DeliveryStatus, 0, len(recipients))
	for _, recipientID := range recipients {
		statuses = append(statuses, model.DeliveryStatus{
			MessageID:      msg.ID,
			RecipientID:    recipientID,
			ConversationID: msg.ConversationID,
			IsDelivered:    true,
			DeliveredAt:    &now,
		})
	}
	return tx.Create(&statuses).Error
}

// MarkConversationRead flips every unread row of userID in the conversation
// in one statement. Calling it again updates nothing and is not an error.
func (r *DeliveryRepository) MarkConversationRead(ctx context.Context, conversationID, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.DeliveryStatus{}).
		Where("conversation_id = ? AND recipient_id = ? AND is_read = ?", conversationID, userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	return res.RowsAffected, errors.Wrap(res.Error, "deliveryRepo.MarkConversationRead")
}

// UnreadCount counts unread rows of a user across all conversations.
func (r *DeliveryRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DeliveryStatus{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, errors.Wrap(err, "deliveryRepo.UnreadCount")
}

func (r *DeliveryRepository) UnreadCountForConversation(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DeliveryStatus{}).
		Where("conversation_id = ? AND recipient_id = ? AND is_read = ?", conversationID, userID, false).
		Count(&count).Error
	return count, errors.Wrap(err, "deliveryRepo.UnreadCountForConversation")
}

// UnreadByConversation returns the unread count of every conversation in
// which userID has unread messages.
func (r *DeliveryRepository) UnreadByConversation(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []struct {
		ConversationID uuid.UUID
		Unread         int64
	}
	err := r.db.WithContext(ctx).Model(&model.DeliveryStatus{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "deliveryRepo.UnreadByConversation")
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.ConversationID] = row.Unread
	}
	return counts, nil
}

// ForMessage lists the status rows of one message.
func (r *DeliveryRepository) ForMessage(ctx context.Context, messageID uuid.UUID) ([]model.DeliveryStatus, error) {
	statuses := []model.DeliveryStatus{}
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("recipient_id").
		Find(&statuses).Error
	return statuses, errors.Wrap(err, "deliveryRepo.ForMessage")
}
