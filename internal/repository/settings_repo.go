package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/quocanhngo/chatcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository stores per-user conversation settings and drafts.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetOrCreate returns the user's settings for a conversation, creating the
// default row on first access.
func (r *SettingsRepository) GetOrCreate(ctx context.Context, conversationID, userID uuid.UUID) (*model.ConversationSettings, error) {
	db := r.db.WithContext(ctx)

	defaults := model.ConversationSettings{
		ConversationID:      conversationID,
		UserID:              userID,
		CustomNotifications: true,
	}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error
	if err != nil {
		return nil, errors.Wrap(err, "settingsRepo.GetOrCreate.insert")
	}

	var settings model.ConversationSettings
	err = db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).Take(&settings).Error
	if err != nil {
		return nil, errors.Wrap(err, "settingsRepo.GetOrCreate")
	}
	return &settings, nil
}

// ForUser returns the user's existing settings rows for the given
// conversations, keyed by conversation id.
func (r *SettingsRepository) ForUser(ctx context.Context, userID uuid.UUID, conversationIDs []uuid.UUID) (map[uuid.UUID]model.ConversationSettings, error) {
	rows := []model.ConversationSettings{}
	if len(conversationIDs) > 0 {
		err := r.db.WithContext(ctx).
			Where("user_id = ? AND conversation_id IN ?", userID, conversationIDs).
			Find(&rows).Error
		if err != nil {
			return nil, errors.Wrap(err, "settingsRepo.ForUser")
		}
	}

	byConv := make(map[uuid.UUID]model.ConversationSettings, len(rows))
	for _, s := range rows {
		byConv[s.ConversationID] = s
	}
	return byConv, nil
}

// Update applies a partial update. Map updates let false and nil through.
func (r *SettingsRepository) Update(ctx context.Context, conversationID, userID uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	err := r.db.WithContext(ctx).Model(&model.ConversationSettings{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(updates).Error
	return errors.Wrap(err, "settingsRepo.Update")
}

// SaveDraft stores content as the user's draft, or removes the draft when
// content is blank. Returns nil when no draft remains.
func (r *SettingsRepository) SaveDraft(ctx context.Context, conversationID, userID uuid.UUID, content string) (*model.MessageDraft, error) {
	if strings.TrimSpace(content) == "" {
		return nil, r.DeleteDraft(ctx, conversationID, userID)
	}

	draft := model.MessageDraft{
		ConversationID: conversationID,
		UserID:         userID,
		Content:        content,
		UpdatedAt:      time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&draft).Error
	if err != nil {
		return nil, errors.Wrap(err, "settingsRepo.SaveDraft")
	}
	return &draft, nil
}

func (r *SettingsRepository) GetDraft(ctx context.Context, conversationID, userID uuid.UUID) (*model.MessageDraft, error) {
	var draft model.MessageDraft
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Take(&draft).Error
	if err != nil {
		return nil, errors.Wrap(err, "settingsRepo.GetDraft")
	}
	return &draft, nil
}

func (r *SettingsRepository) DeleteDraft(ctx context.Context, conversationID, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&model.MessageDraft{}).Error
	return errors.Wrap(err, "settingsRepo.DeleteDraft")
}
