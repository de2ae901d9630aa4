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

// ReactionRepository stores the single reaction each user holds on a message.
type ReactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Toggle applies kind for userID on messageID: a fresh reaction is added,
// the same kind again is removed, a different kind replaces the old one.
// The per-kind counts are recounted from the table afterwards.
func (r *ReactionRepository) Toggle(ctx context.Context, messageID, userID uuid.UUID, kind model.ReactionKind) (model.ReactionAction, map[model.ReactionKind]int64, error) {
	var action model.ReactionAction
	var counts map[model.ReactionKind]int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Reaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("message_id = ? AND user_id = ?", messageID, userID).
			Take(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			reaction := model.Reaction{MessageID: messageID, UserID: userID, Kind: kind}
			// a concurrent first reaction from the same user collapses into one row
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"kind": kind, "updated_at": time.Now()}),
			}).Create(&reaction).Error
			action = model.ReactionAdded
		case err != nil:
			return err
		case existing.Kind == kind:
			err = tx.Where("message_id = ? AND user_id = ?", messageID, userID).
				Delete(&model.Reaction{}).Error
			action = model.ReactionRemoved
		default:
			err = tx.Model(&model.Reaction{}).
				Where("message_id = ? AND user_id = ?", messageID, userID).
				Updates(map[string]interface{}{"kind": kind, "updated_at": time.Now()}).Error
			action = model.ReactionUpdated
		}
		if err != nil {
			return err
		}

		counts, err = countReactions(tx, messageID)
		return err
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "reactionRepo.Toggle")
	}
	return action, counts, nil
}

func countReactions(tx *gorm.DB, messageID uuid.UUID) (map[model.ReactionKind]int64, error) {
	var rows []struct {
		Kind  model.ReactionKind
		Total int64
	}
	err := tx.Model(&model.Reaction{}).
		Select("kind, COUNT(*) AS total").
		Where("message_id = ?", messageID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.ReactionKind]int64, len(rows))
	for _, row := range rows {
		counts[row.Kind] = row.Total
	}
	return counts, nil
}
