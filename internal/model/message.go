package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MessageType defines the type of message content
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeFile   MessageType = "file"
	MessageTypeImage  MessageType = "image"
	MessageTypeVoice  MessageType = "voice"
	MessageTypeSystem MessageType = "system"
)

// Valid reports whether t is a known type a client may send. System
// messages are only produced by the server.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeFile, MessageTypeImage, MessageTypeVoice:
		return true
	}
	return false
}

// Message is one entry of a conversation's history. Content only changes
// through an edit or a soft delete.
type Message struct {
	ID             uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID         `json:"conversation_id" gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1"`
	SenderID       uuid.UUID         `json:"sender_id" gorm:"type:uuid;not null;index"`
	Type           MessageType       `json:"message_type" gorm:"type:varchar(20);not null;default:'text'"`
	Content        string            `json:"content" gorm:"type:text"`
	AttachmentKey  string            `json:"attachment_key,omitempty" gorm:"size:500"`
	AttachmentName string            `json:"attachment_name,omitempty" gorm:"size:255"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	ReplyToID      *uuid.UUID        `json:"reply_to_id,omitempty" gorm:"type:uuid"`
	IsEdited       bool              `json:"is_edited" gorm:"not null;default:false"`
	EditedAt       *time.Time        `json:"edited_at,omitempty"`
	IsDeleted      bool              `json:"is_deleted" gorm:"not null;default:false"`
	DeletedAt      *time.Time        `json:"deleted_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at" gorm:"index:idx_messages_conversation_created,priority:2"`

	// Relations
	Sender  User     `json:"sender" gorm:"foreignKey:SenderID"`
	ReplyTo *Message `json:"reply_to,omitempty" gorm:"foreignKey:ReplyToID"`
}

func (Message) TableName() string { return "messages" }

// BeforeCreate assigns a version 7 id so ids sort in creation order.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.ID = id
	}
	return nil
}

// DeliveryStatus tracks one recipient's view of one message. The sender
// never has a row for their own message.
type DeliveryStatus struct {
	MessageID      uuid.UUID  `json:"message_id" gorm:"type:uuid;primaryKey"`
	RecipientID    uuid.UUID  `json:"recipient_id" gorm:"type:uuid;primaryKey;index:idx_delivery_recipient_unread,priority:1"`
	ConversationID uuid.UUID  `json:"conversation_id" gorm:"type:uuid;not null;index"`
	IsDelivered    bool       `json:"is_delivered" gorm:"not null"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	IsRead         bool       `json:"is_read" gorm:"not null;default:false;index:idx_delivery_recipient_unread,priority:2"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

func (DeliveryStatus) TableName() string { return "delivery_statuses" }

// ReactionKind is one of the fixed set of reactions.
type ReactionKind string

const (
	ReactionLike  ReactionKind = "like"
	ReactionLove  ReactionKind = "love"
	ReactionLaugh ReactionKind = "laugh"
	ReactionWow   ReactionKind = "wow"
	ReactionSad   ReactionKind = "sad"
	ReactionAngry ReactionKind = "angry"
)

func (k ReactionKind) Valid() bool {
	switch k {
	case ReactionLike, ReactionLove, ReactionLaugh, ReactionWow, ReactionSad, ReactionAngry:
		return true
	}
	return false
}

// ReactionAction is what a toggle did.
type ReactionAction string

const (
	ReactionAdded   ReactionAction = "added"
	ReactionRemoved ReactionAction = "removed"
	ReactionUpdated ReactionAction = "updated"
)

// Reaction is the single reaction a user holds on a message.
type Reaction struct {
	MessageID uuid.UUID    `json:"message_id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID    `json:"user_id" gorm:"type:uuid;primaryKey"`
	Kind      ReactionKind `json:"reaction_type" gorm:"type:varchar(20);not null"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Reaction) TableName() string { return "message_reactions" }

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&UserDevice{},
		&Conversation{},
		&ConversationMember{},
		&ConversationSettings{},
		&Message{},
		&DeliveryStatus{},
		&Reaction{},
		&MessageDraft{},
	}
}
