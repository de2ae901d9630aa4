package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/quocanhngo/chatcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository handles database operations for Message
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateWithStatuses persists msg, one delivery status per recipient and
// the conversation's updated_at bump in a single transaction.
func (r *MessageRepository) CreateWithStatuses(ctx context.Context, msg *model.Message, recipients []uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(msg).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := createStatuses(tx, msg, recipients, now); err != nil {
			return err
		}

		return tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			UpdateColumn("updated_at", now).Error
	})
	return errors.Wrap(err, "messageRepo.CreateWithStatuses")
}

// FindByID finds a message by ID with its sender and reply target
func (r *MessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("ReplyTo.Sender").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.FindByID")
	}
	return &msg, nil
}

// History returns up to limit messages older than the before cursor, in
// canonical (created_at, id) order. Tombstones are included.
func (r *MessageRepository) History(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	db := r.db.WithContext(ctx)
	query := db.
		Preload("Sender").
		Preload("ReplyTo.Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	// Cursor-based pagination: get messages before a specific message
	if before != nil {
		var cursor model.Message
		err := db.Select("id", "created_at").
			Where("id = ? AND conversation_id = ?", *before, conversationID).
			First(&cursor).Error
		if err != nil {
			return nil, errors.Wrap(err, "messageRepo.History.cursor")
		}
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	messages := []model.Message{}
	if err := query.Find(&messages).Error; err != nil {
		return nil, errors.Wrap(err, "messageRepo.History")
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// GetLastMessage returns the most recent message in a conversation
func (r *MessageRepository) GetLastMessage(ctx context.Context, conversationID uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("id DESC").
		First(&msg).Error
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.GetLastMessage")
	}
	return &msg, nil
}

// UpdateContent replaces the content of a live message and flags it edited.
func (r *MessageRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"content":   content,
			"is_edited": true,
			"edited_at": now,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "messageRepo.UpdateContent")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(gorm.ErrRecordNotFound, "messageRepo.UpdateContent")
	}
	return nil
}

// SoftDelete turns a message into a tombstone: content and attachment are
// cleared, the row keeps its place in the history. Returns false when the
// message already was a tombstone.
func (r *MessageRepository) SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"content":         "",
			"attachment_key":  "",
			"attachment_name": "",
			"is_deleted":      true,
			"deleted_at":      now,
		})
	return res.RowsAffected > 0, errors.Wrap(res.Error, "messageRepo.SoftDelete")
}

// SearchQuery scopes a message search to what one user can see.
type SearchQuery struct {
	UserID         uuid.UUID
	Text           string
	ConversationID *uuid.UUID
	Type           model.MessageType
	Limit          int
	Offset         int
}

// Search matches content case-insensitively in conversations the user
// belongs to, newest first. Tombstones never match.
func (r *MessageRepository) Search(ctx context.Context, q SearchQuery) ([]model.Message, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.conversation_id = messages.conversation_id AND cm.user_id = ?", q.UserID).
		Preload("Sender").
		Where("messages.is_deleted = ?", false).
		Where(`LOWER(messages.content) LIKE ? ESCAPE '\'`, likePattern(q.Text))

	if q.ConversationID != nil {
		query = query.Where("messages.conversation_id = ?", *q.ConversationID)
	}
	if q.Type != "" {
		query = query.Where("messages.type = ?", q.Type)
	}

	messages := []model.Message{}
	err := query.
		Order("messages.created_at DESC").
		Order("messages.id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&messages).Error
	return messages, errors.Wrap(err, "messageRepo.Search")
}

// ListForExport returns every live message of a conversation in canonical
// order.
func (r *MessageRepository) ListForExport(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error) {
	messages := []model.Message{}
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Order("created_at").
		Order("id").
		Find(&messages).Error
	return messages, errors.Wrap(err, "messageRepo.ListForExport")
}

// TypeCount is one row of a per-type breakdown.
type TypeCount struct {
	Type  model.MessageType
	Total int64
}

// CountByType breaks down the live messages of a conversation by type.
func (r *MessageRepository) CountByType(ctx context.Context, conversationID uuid.UUID) ([]TypeCount, error) {
	var rows []TypeCount
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("type, COUNT(*) AS total").
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Group("type").
		Order("type").
		Scan(&rows).Error
	return rows, errors.Wrap(err, "messageRepo.CountByType")
}

// SenderCount is a sender with their number of messages.
type SenderCount struct {
	SenderID uuid.UUID
	Total    int64
}

// MostActiveSender returns the participant with the most live messages,
// system messages excluded. Ties go to the lowest sender id.
func (r *MessageRepository) MostActiveSender(ctx context.Context, conversationID uuid.UUID) (*SenderCount, error) {
	var rows []SenderCount
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("sender_id, COUNT(*) AS total").
		Where("conversation_id = ? AND is_deleted = ? AND type <> ?", conversationID, false, model.MessageTypeSystem).
		Group("sender_id").
		Order("total DESC").
		Order("sender_id").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.MostActiveSender")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
