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

// ConversationRepository handles database operations for Conversation
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindByID finds a conversation by ID with members
func (r *ConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Preload("Members.User").
		Where("id = ?", id).
		First(&conv).Error
	if err != nil {
		return nil, errors.Wrap(err, "conversationRepo.FindByID")
	}
	return &conv, nil
}

// GetOrCreateDirect returns the direct conversation of the unordered pair
// (a, b), creating it when missing. The insert relies on the unique
// direct_key: a concurrent creator loses the conflict and re-reads the
// winner's row.
func (r *ConversationRepository) GetOrCreateDirect(ctx context.Context, a, b uuid.UUID) (*model.Conversation, bool, error) {
	key := model.DirectKeyFor(a, b)

	var convID uuid.UUID
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv := &model.Conversation{DirectKey: &key}
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "direct_key"}},
				DoNothing: true,
			}).
			Create(conv)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var existing model.Conversation
			if err := tx.Select("id").Where("direct_key = ?", key).First(&existing).Error; err != nil {
				return err
			}
			convID = existing.ID
			return nil
		}

		now := time.Now()
		members := []model.ConversationMember{
			{ConversationID: conv.ID, UserID: a, JoinedAt: now},
			{ConversationID: conv.ID, UserID: b, JoinedAt: now},
		}
		if err := tx.Omit(clause.Associations).Create(&members).Error; err != nil {
			return err
		}
		convID = conv.ID
		created = true
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "conversationRepo.GetOrCreateDirect")
	}

	conv, err := r.FindByID(ctx, convID)
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

// CreateGroup inserts a group, its members and the system message that
// records its creation, all or nothing. Every member except the system
// message's sender gets a delivery status row.
func (r *ConversationRepository) CreateGroup(ctx context.Context, conv *model.Conversation, memberIDs []uuid.UUID, systemMsg *model.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(conv).Error; err != nil {
			return err
		}

		now := time.Now()
		members := make([]model.ConversationMember, 0, len(memberIDs))
		for _, id := range memberIDs {
			members = append(members, model.ConversationMember{
				ConversationID: conv.ID,
				UserID:         id,
				JoinedAt:       now,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&members).Error; err != nil {
			return err
		}

		systemMsg.ConversationID = conv.ID
		if err := tx.Omit(clause.Associations).Create(systemMsg).Error; err != nil {
			return err
		}
		return createStatuses(tx, systemMsg, recipientsOf(memberIDs, systemMsg.SenderID), now)
	})
	return errors.Wrap(err, "conversationRepo.CreateGroup")
}

// IsMember checks if a user is a member of a conversation
func (r *ConversationRepository) IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, errors.Wrap(err, "conversationRepo.IsMember")
}

// GetMemberIDs returns all member user IDs for a conversation
func (r *ConversationRepository) GetMemberIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	memberIDs := []uuid.UUID{}
	err := r.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ?", conversationID).
		Order("joined_at, user_id").
		Pluck("user_id", &memberIDs).Error
	return memberIDs, errors.Wrap(err, "conversationRepo.GetMemberIDs")
}

// InboxQuery selects a page of a user's conversations.
type InboxQuery struct {
	UserID uuid.UUID
	Filter model.InboxFilter
	Search string
	Limit  int
	Offset int
}

// ListForUser returns the user's conversations, pinned first and then by
// latest activity. Archived conversations only show up under the archived
// filter.
func (r *ConversationRepository) ListForUser(ctx context.Context, q InboxQuery) ([]model.Conversation, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.conversation_id = conversations.id AND cm.user_id = ?", q.UserID).
		Joins("LEFT JOIN conversation_settings cs ON cs.conversation_id = conversations.id AND cs.user_id = ?", q.UserID)

	switch q.Filter {
	case model.InboxArchived:
		query = query.Where("cs.is_archived = ?", true)
	default:
		query = query.Where("(cs.is_archived IS NULL OR cs.is_archived = ?)", false)
	}

	switch q.Filter {
	case model.InboxGroups:
		query = query.Where("conversations.is_group = ?", true)
	case model.InboxDirect:
		query = query.Where("conversations.is_group = ?", false)
	case model.InboxUnread:
		query = query.Where(
			"EXISTS (SELECT 1 FROM delivery_statuses ds WHERE ds.conversation_id = conversations.id AND ds.recipient_id = ? AND ds.is_read = ?)",
			q.UserID, false,
		)
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := likePattern(search)
		query = query.Where(
			`(LOWER(conversations.name) LIKE ? ESCAPE '\' OR EXISTS (
				SELECT 1 FROM conversation_members om JOIN users u ON u.id = om.user_id
				WHERE om.conversation_id = conversations.id AND om.user_id <> ? AND LOWER(u.name) LIKE ? ESCAPE '\'))`,
			pattern, q.UserID, pattern,
		)
	}

	conversations := []model.Conversation{}
	err := query.
		Preload("Members.User").
		Order("CASE WHEN cs.is_pinned = TRUE THEN 0 ELSE 1 END").
		Order("conversations.updated_at DESC").
		Order("conversations.id").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&conversations).Error
	return conversations, errors.Wrap(err, "conversationRepo.ListForUser")
}

// likePattern builds a case-insensitive substring pattern with LIKE
// wildcards in s escaped.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(s))
	return "%" + s + "%"
}

func recipientsOf(memberIDs []uuid.UUID, sender uuid.UUID) []uuid.UUID {
	recipients := make([]uuid.UUID, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != sender {
			recipients = append(recipients, id)
		}
	}
	return recipients
}
