package model

import (
	"time"

	"github.com/google/uuid"
)

// Client -> server frame types
const (
	FrameChatMessage     = "chat_message"
	FrameTyping          = "typing"
	FrameMarkAsRead      = "mark_as_read"
	FrameMessageReaction = "message_reaction"
)

// Server -> client frame types
const (
	FrameUserStatus             = "user_status"
	FrameTypingIndicator        = "typing_indicator"
	FrameMessagesRead           = "messages_read"
	FrameMessageEdited          = "message_edited"
	FrameMessageDeleted         = "message_deleted"
	FrameNewMessage             = "new_message"
	FrameConversationInvitation = "conversation_invitation"
	FrameError                  = "error"
)

// InboundFrame is any client frame. Optional fields are pointers so a
// missing field can be told apart from a zero value.
type InboundFrame struct {
	Type         string        `json:"type"`
	Content      *string       `json:"content,omitempty"`
	ReplyToID    *string       `json:"reply_to_id,omitempty"`
	IsTyping     *bool         `json:"is_typing,omitempty"`
	MessageID    *string       `json:"message_id,omitempty"`
	ReactionType *ReactionKind `json:"reaction_type,omitempty"`
}

type ChatMessageFrame struct {
	Type    string      `json:"type"`
	Message MessageView `json:"message"`
}

type UserStatusFrame struct {
	Type     string    `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Status   string    `json:"status"` // online, offline
	IsOnline bool      `json:"is_online"`
}

type TypingFrame struct {
	Type     string    `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	IsTyping bool      `json:"is_typing"`
}

type MessagesReadFrame struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Username       string    `json:"username"`
	ReadAt         time.Time `json:"read_at"`
}

type ReactionFrame struct {
	Type           string                 `json:"type"`
	MessageID      uuid.UUID              `json:"message_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Username       string                 `json:"username"`
	ReactionType   ReactionKind           `json:"reaction_type"`
	Action         ReactionAction         `json:"action"`
	ReactionCounts map[ReactionKind]int64 `json:"reaction_counts"`
}

type MessageEditedFrame struct {
	Type    string      `json:"type"`
	Message MessageView `json:"message"`
}

type MessageDeletedFrame struct {
	Type           string    `json:"type"`
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	DeletedAt      time.Time `json:"deleted_at"`
}

// NewMessageNotice is the cross-conversation toast payload sent to a
// recipient's personal channel.
type NewMessageNotice struct {
	ID               uuid.UUID   `json:"id"`
	ConversationID   uuid.UUID   `json:"conversation_id"`
	ConversationName string      `json:"conversation_name"`
	SenderName       string      `json:"sender_name"`
	SenderAvatar     string      `json:"sender_avatar"`
	Content          string      `json:"content"`
	MessageType      MessageType `json:"message_type"`
	CreatedAt        time.Time   `json:"created_at"`
}

type NewMessageFrame struct {
	Type    string           `json:"type"`
	Message NewMessageNotice `json:"message"`
}

type InvitationFrame struct {
	Type             string    `json:"type"`
	ConversationID   uuid.UUID `json:"conversation_id"`
	ConversationName string    `json:"conversation_name"`
	InvitedBy        string    `json:"invited_by"`
}

type ErrorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Truncate cuts s to at most n runes, for previews.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
