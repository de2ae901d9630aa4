package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Conversation DTOs ==========

type DirectConversationRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" binding:"required"`
}

type CreateGroupRequest struct {
	Name           string      `json:"name" binding:"required,max=100"`
	Description    string      `json:"description" binding:"max=1000"`
	ParticipantIDs []uuid.UUID `json:"participant_ids" binding:"required,min=1"`
}

// InboxFilter selects which conversations the inbox lists.
type InboxFilter string

const (
	InboxAll      InboxFilter = "all"
	InboxUnread   InboxFilter = "unread"
	InboxGroups   InboxFilter = "groups"
	InboxDirect   InboxFilter = "direct"
	InboxArchived InboxFilter = "archived"
)

type InboxRequest struct {
	Filter InboxFilter `form:"filter,default=all" binding:"omitempty,oneof=all unread groups direct archived"`
	Search string      `form:"search"`
	Page   int         `form:"page,default=1" binding:"min=1"`
}

type ConversationResponse struct {
	Conversation
	DisplayName string                `json:"display_name"`
	LastMessage *MessageView          `json:"last_message,omitempty"`
	UnreadCount int64                 `json:"unread_count"`
	Settings    *ConversationSettings `json:"settings,omitempty"`
}

type InboxResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	TotalUnread   int64                  `json:"total_unread"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
	HasMore       bool                   `json:"has_more"`
}

type DirectConversationResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	Messages     []MessageView        `json:"messages"`
	IsNew        bool                 `json:"is_new"`
}

type GroupCreatedResponse struct {
	Conversation  ConversationResponse `json:"conversation"`
	SystemMessage MessageView          `json:"system_message"`
}

type UpdateSettingsRequest struct {
	IsMuted             *bool      `json:"is_muted"`
	MutedUntil          *time.Time `json:"muted_until"`
	IsArchived          *bool      `json:"is_archived"`
	IsPinned            *bool      `json:"is_pinned"`
	CustomNotifications *bool      `json:"custom_notifications"`
}

type SaveDraftRequest struct {
	Content string `json:"content"`
}

type RegisterDeviceRequest struct {
	FCMToken   string `json:"fcm_token" binding:"required"`
	DeviceType string `json:"device_type" binding:"required,oneof=android ios web"`
}

// ========== Message DTOs ==========

type SendMessageRequest struct {
	Content        string      `json:"content" binding:"max=10000"`
	Type           MessageType `json:"message_type"`
	AttachmentKey  string      `json:"attachment_key" binding:"max=500"`
	AttachmentName string      `json:"attachment_name" binding:"max=255"`
	ReplyToID      *uuid.UUID  `json:"reply_to_id"`
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
}

type ReactionRequest struct {
	ReactionType ReactionKind `json:"reaction_type" binding:"required"`
}

type MessageListRequest struct {
	Before string `form:"before"` // cursor for pagination (message ID)
	Limit  int    `form:"limit,default=50"`
}

type SearchRequest struct {
	Query          string `form:"q"`
	ConversationID string `form:"conversation_id"`
	Type           string `form:"message_type"`
	Page           int    `form:"page,default=1" binding:"min=1"`
}

// ReplyPreview is the short form of a replied-to message.
type ReplyPreview struct {
	ID         uuid.UUID `json:"id"`
	Content    string    `json:"content"`
	SenderName string    `json:"sender_name"`
	IsDeleted  bool      `json:"is_deleted,omitempty"`
}

// MessageView is a message hydrated with sender display info, as sent to
// clients over both REST and WebSocket.
type MessageView struct {
	ID             uuid.UUID     `json:"id"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	Content        string        `json:"content"`
	SenderID       uuid.UUID     `json:"sender_id"`
	SenderName     string        `json:"sender_name"`
	SenderAvatar   string        `json:"sender_avatar"`
	MessageType    MessageType   `json:"message_type"`
	AttachmentURL  string        `json:"attachment_url,omitempty"`
	AttachmentName string        `json:"attachment_name,omitempty"`
	IsEdited       bool          `json:"is_edited"`
	EditedAt       *time.Time    `json:"edited_at,omitempty"`
	IsDeleted      bool          `json:"is_deleted"`
	CreatedAt      time.Time     `json:"created_at"`
	ReplyTo        *ReplyPreview `json:"reply_to,omitempty"`
}

type MessagePage struct {
	Messages []MessageView `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

type SearchResponse struct {
	Results []MessageView `json:"results"`
	Page    int           `json:"page"`
	HasMore bool          `json:"has_more"`
}

type ReactionResponse struct {
	MessageID      uuid.UUID              `json:"message_id"`
	ConversationID uuid.UUID              `json:"conversation_id"`
	ReactionType   ReactionKind           `json:"reaction_type"`
	Action         ReactionAction         `json:"action"`
	ReactionCounts map[ReactionKind]int64 `json:"reaction_counts"`
}

type MarkReadResponse struct {
	Updated int64     `json:"updated"`
	ReadAt  time.Time `json:"read_at"`
}

type UnreadResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// ExportFormat is the output format of a conversation export.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportText ExportFormat = "txt"
)

type ExportedMessage struct {
	ID          uuid.UUID   `json:"id"`
	Sender      string      `json:"sender"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	CreatedAt   time.Time   `json:"created_at"`
	IsEdited    bool        `json:"is_edited"`
	EditedAt    *time.Time  `json:"edited_at"`
}

type ConversationExport struct {
	ConversationID   uuid.UUID         `json:"conversation_id"`
	ConversationName string            `json:"conversation_name"`
	ExportedBy       string            `json:"exported_by"`
	ExportedAt       time.Time         `json:"exported_at"`
	Messages         []ExportedMessage `json:"messages"`
}

type ActiveSender struct {
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	MessageCount int64     `json:"message_count"`
}

type AnalyticsResponse struct {
	ConversationID uuid.UUID             `json:"conversation_id"`
	TotalMessages  int64                 `json:"total_messages"`
	ByType         map[MessageType]int64 `json:"by_type"`
	MostActive     *ActiveSender         `json:"most_active,omitempty"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}
