package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is either a direct chat between exactly two users or a group.
type Conversation struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	IsGroup     bool       `json:"is_group" gorm:"not null;default:false"`
	Name        string     `json:"name" gorm:"size:100"`
	Description string     `json:"description,omitempty" gorm:"type:text"`
	AdminID     *uuid.UUID `json:"admin_id,omitempty" gorm:"type:uuid"`
	// DirectKey is the canonical "<low>:<high>" pair of a direct conversation.
	// The unique index makes the pair unique no matter who starts the chat.
	DirectKey *string   `json:"-" gorm:"size:80;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Members []ConversationMember `json:"members,omitempty" gorm:"foreignKey:ConversationID"`
}

func (Conversation) TableName() string { return "conversations" }

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// DisplayName is the group name, or the other participant's name for a
// direct conversation seen by viewer.
func (c *Conversation) DisplayName(viewer uuid.UUID) string {
	if c.IsGroup {
		return c.Name
	}
	for _, m := range c.Members {
		if m.UserID != viewer {
			return m.User.Name
		}
	}
	return c.Name
}

// DirectKeyFor returns the order-independent key of the pair (a, b).
func DirectKeyFor(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if strings.Compare(x, y) > 0 {
		x, y = y, x
	}
	return x + ":" + y
}

// ConversationMember represents a user's membership in a conversation
type ConversationMember struct {
	ConversationID uuid.UUID `json:"conversation_id" gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey;index"`
	JoinedAt       time.Time `json:"joined_at"`

	// Relations
	User User `json:"user" gorm:"foreignKey:UserID"`
}

func (ConversationMember) TableName() string { return "conversation_members" }

// ConversationSettings holds one user's preferences for one conversation.
// Rows are created lazily the first time they are read.
type ConversationSettings struct {
	ConversationID      uuid.UUID  `json:"conversation_id" gorm:"type:uuid;primaryKey"`
	UserID              uuid.UUID  `json:"user_id" gorm:"type:uuid;primaryKey"`
	IsMuted             bool       `json:"is_muted" gorm:"not null;default:false"`
	MutedUntil          *time.Time `json:"muted_until,omitempty"`
	IsArchived          bool       `json:"is_archived" gorm:"not null;default:false"`
	IsPinned            bool       `json:"is_pinned" gorm:"not null;default:false"`
	CustomNotifications bool       `json:"custom_notifications" gorm:"not null;default:true"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (ConversationSettings) TableName() string { return "conversation_settings" }

// MutedAt reports whether the mute is in effect at now. A mute with a
// muted_until in the past has lapsed.
func (s *ConversationSettings) MutedAt(now time.Time) bool {
	if !s.IsMuted {
		return false
	}
	if s.MutedUntil != nil && !s.MutedUntil.After(now) {
		return false
	}
	return true
}

// Silenced is true when no alert of any kind should reach the user.
func (s *ConversationSettings) Silenced(now time.Time) bool {
	return s.MutedAt(now) || !s.CustomNotifications
}

// MessageDraft is the unsent text a user left in a conversation's composer.
type MessageDraft struct {
	ConversationID uuid.UUID `json:"conversation_id" gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (MessageDraft) TableName() string { return "message_drafts" }
