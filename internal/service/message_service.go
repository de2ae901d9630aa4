package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"go.uber.org/zap"
)

const (
	searchPageSize      = 20
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100

	// in runes, matching the request binding
	maxContentLength = 10000
)

// ObjectRemover deletes attachment objects.
type ObjectRemover interface {
	Delete(ctx context.Context, objectName string) error
}

// MessageService handles message business logic
type MessageService struct {
	convRepo     *repository.ConversationRepository
	msgRepo      *repository.MessageRepository
	reactionRepo *repository.ReactionRepository
	userRepo     *repository.UserRepository
	access       *Access
	dispatcher   *NotificationDispatcher
	urls         AttachmentURLs
	objects      ObjectRemover
	log          *zap.Logger
}

func NewMessageService(
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	reactionRepo *repository.ReactionRepository,
	userRepo *repository.UserRepository,
	access *Access,
	dispatcher *NotificationDispatcher,
	urls AttachmentURLs,
	objects ObjectRemover,
	log *zap.Logger,
) *MessageService {
	return &MessageService{
		convRepo:     convRepo,
		msgRepo:      msgRepo,
		reactionRepo: reactionRepo,
		userRepo:     userRepo,
		access:       access,
		dispatcher:   dispatcher,
		urls:         urls,
		objects:      objects,
		log:          log,
	}
}

// SendParams describes a message to send.
type SendParams struct {
	SenderID       uuid.UUID
	ConversationID uuid.UUID
	Content        string
	Type           model.MessageType
	AttachmentKey  string
	AttachmentName string
	ReplyToID      *uuid.UUID
}

// Send persists a message with one delivery status per other participant,
// then hands it to the notification dispatcher.
func (s *MessageService) Send(ctx context.Context, p SendParams) (*model.MessageView, error) {
	if err := s.access.RequireParticipant(ctx, p.SenderID, p.ConversationID); err != nil {
		return nil, err
	}

	msgType := p.Type
	if msgType == "" {
		msgType = model.MessageTypeText
	}
	if !msgType.Valid() {
		return nil, apperror.InvalidArg("unknown message type")
	}

	content := strings.TrimSpace(p.Content)
	attachmentKey := strings.TrimSpace(p.AttachmentKey)
	switch {
	case msgType == model.MessageTypeText && content == "" && attachmentKey == "":
		return nil, apperror.InvalidArg("message content is required")
	case msgType != model.MessageTypeText && attachmentKey == "":
		return nil, apperror.InvalidArg("an attachment is required for this message type")
	case utf8.RuneCountInString(content) > maxContentLength:
		return nil, apperror.InvalidArg("message content is too long")
	}

	if p.ReplyToID != nil {
		target, err := s.msgRepo.FindByID(ctx, *p.ReplyToID)
		if err != nil {
			return nil, storeError(err, apperror.ErrInvalidReply)
		}
		if target.ConversationID != p.ConversationID {
			return nil, apperror.ErrInvalidReply
		}
	}

	memberIDs, err := s.access.ParticipantIDs(ctx, p.ConversationID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	recipients := make([]uuid.UUID, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != p.SenderID {
			recipients = append(recipients, id)
		}
	}

	msg := &model.Message{
		ConversationID: p.ConversationID,
		SenderID:       p.SenderID,
		Type:           msgType,
		Content:        content,
		AttachmentKey:  attachmentKey,
		AttachmentName: strings.TrimSpace(p.AttachmentName),
		ReplyToID:      p.ReplyToID,
	}
	if err := s.msgRepo.CreateWithStatuses(ctx, msg, recipients); err != nil {
		return nil, apperror.Internal(err)
	}

	saved, err := s.msgRepo.FindByID(ctx, msg.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	s.dispatcher.MessageSent(ctx, saved, recipients)

	view := viewOf(saved, s.urls)
	return &view, nil
}

// Edit replaces the content of a live message. Only its sender may edit.
func (s *MessageService) Edit(ctx context.Context, messageID, editorID uuid.UUID, content string) (*model.MessageView, error) {
	msg, err := s.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, storeError(err, apperror.ErrMessageMissing)
	}
	if msg.SenderID != editorID {
		return nil, apperror.ErrPermissionDenied
	}
	if msg.IsDeleted {
		return nil, apperror.InvalidArg("a deleted message cannot be edited")
	}
	if msg.Type == model.MessageTypeSystem {
		return nil, apperror.InvalidArg("system messages cannot be edited")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.InvalidArg("message content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, apperror.InvalidArg("message content is too long")
	}

	if err := s.msgRepo.UpdateContent(ctx, messageID, content, time.Now()); err != nil {
		// lost a race with a delete
		return nil, storeError(err, apperror.InvalidArg("a deleted message cannot be edited"))
	}

	edited, err := s.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	view := viewOf(edited, s.urls)
	return &view, nil
}

// SoftDelete turns the message into a tombstone. The sender check comes
// first, so a non-sender gets PermissionDenied even on a tombstone. The
// returned bool is false when the message already was deleted.
func (s *MessageService) SoftDelete(ctx context.Context, messageID, requesterID uuid.UUID) (*model.Message, bool, error) {
	msg, err := s.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, false, storeError(err, apperror.ErrMessageMissing)
	}
	if msg.SenderID != requesterID {
		return nil, false, apperror.ErrPermissionDenied
	}
	if msg.IsDeleted {
		return msg, false, nil
	}

	deleted, err := s.msgRepo.SoftDelete(ctx, messageID, time.Now())
	if err != nil {
		return nil, false, apperror.Internal(err)
	}
	if !deleted {
		return msg, false, nil
	}

	if msg.AttachmentKey != "" && s.objects != nil {
		if err := s.objects.Delete(context.WithoutCancel(ctx), msg.AttachmentKey); err != nil {
			s.log.Warn("attachment cleanup failed",
				zap.String("message_id", messageID.String()),
				zap.String("object", msg.AttachmentKey),
				zap.Error(err))
		}
	}

	tomb, err := s.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, false, apperror.Internal(err)
	}
	return tomb, true, nil
}

// ToggleReaction adds, removes or switches the user's reaction.
func (s *MessageService) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, kind model.ReactionKind) (*model.ReactionResponse, error) {
	if !kind.Valid() {
		return nil, apperror.InvalidArg("unknown reaction type")
	}

	msg, err := s.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, storeError(err, apperror.ErrMessageMissing)
	}
	if err := s.access.RequireParticipant(ctx, userID, msg.ConversationID); err != nil {
		return nil, err
	}
	if msg.IsDeleted {
		return nil, apperror.InvalidArg("a deleted message cannot be reacted to")
	}

	action, counts, err := s.reactionRepo.Toggle(ctx, messageID, userID, kind)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &model.ReactionResponse{
		MessageID:      messageID,
		ConversationID: msg.ConversationID,
		ReactionType:   kind,
		Action:         action,
		ReactionCounts: counts,
	}, nil
}

// History returns a page of the conversation, oldest first, ending just
// before the cursor.
func (s *MessageService) History(ctx context.Context, conversationID, userID uuid.UUID, req model.MessageListRequest) (*model.MessagePage, error) {
	if err := s.access.RequireParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	limit := req.Limit
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	var before *uuid.UUID
	if req.Before != "" {
		id, err := uuid.Parse(req.Before)
		if err != nil {
			return nil, apperror.InvalidArg("invalid cursor")
		}
		before = &id
	}

	messages, err := s.msgRepo.History(ctx, conversationID, before, limit+1)
	if err != nil {
		return nil, storeError(err, apperror.InvalidArg("unknown cursor"))
	}
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[1:]
	}

	return &model.MessagePage{
		Messages: viewsOf(messages, s.urls),
		HasMore:  hasMore,
	}, nil
}

// Search finds live messages the user can see. An empty query matches
// nothing.
func (s *MessageService) Search(ctx context.Context, userID uuid.UUID, req model.SearchRequest) (*model.SearchResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	resp := &model.SearchResponse{Results: []model.MessageView{}, Page: page}

	text := strings.TrimSpace(req.Query)
	if text == "" {
		return resp, nil
	}

	q := repository.SearchQuery{
		UserID: userID,
		Text:   text,
		Limit:  searchPageSize + 1,
		Offset: (page - 1) * searchPageSize,
	}
	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			return nil, apperror.InvalidArg("invalid conversation_id")
		}
		if err := s.access.RequireParticipant(ctx, userID, id); err != nil {
			return nil, err
		}
		q.ConversationID = &id
	}
	if req.Type != "" {
		t := model.MessageType(req.Type)
		if !t.Valid() && t != model.MessageTypeSystem {
			return nil, apperror.InvalidArg("unknown message type")
		}
		q.Type = t
	}

	messages, err := s.msgRepo.Search(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(messages) > searchPageSize {
		messages = messages[:searchPageSize]
		resp.HasMore = true
	}
	resp.Results = viewsOf(messages, s.urls)
	return resp, nil
}

// ExportFile is a rendered conversation export.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Export renders every live message of the conversation as json or txt.
func (s *MessageService) Export(ctx context.Context, conversationID, userID uuid.UUID, format model.ExportFormat) (*ExportFile, error) {
	if format == "" {
		format = model.ExportJSON
	}
	if format != model.ExportJSON && format != model.ExportText {
		return nil, apperror.InvalidArg("format must be json or txt")
	}

	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, storeError(err, apperror.ErrConversationMissing)
	}
	if err := s.access.RequireParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	exporter, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, apperror.ErrUserMissing)
	}
	messages, err := s.msgRepo.ListForExport(ctx, conversationID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	export := model.ConversationExport{
		ConversationID:   conv.ID,
		ConversationName: conv.DisplayName(userID),
		ExportedBy:       exporter.Name,
		ExportedAt:       time.Now().UTC(),
		Messages:         make([]model.ExportedMessage, 0, len(messages)),
	}
	for _, m := range messages {
		export.Messages = append(export.Messages, model.ExportedMessage{
			ID:          m.ID,
			Sender:      m.Sender.Name,
			Content:     m.Content,
			MessageType: m.Type,
			CreatedAt:   m.CreatedAt,
			IsEdited:    m.IsEdited,
			EditedAt:    m.EditedAt,
		})
	}

	base := "conversation_" + conv.ID.String()
	if format == model.ExportText {
		return &ExportFile{
			Name:        base + ".txt",
			ContentType: "text/plain; charset=utf-8",
			Data:        []byte(renderTextExport(export)),
		}, nil
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &ExportFile{Name: base + ".json", ContentType: "application/json", Data: data}, nil
}

func renderTextExport(e model.ConversationExport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation: %s\n", e.ConversationName)
	fmt.Fprintf(&b, "Exported by: %s\n", e.ExportedBy)
	fmt.Fprintf(&b, "Exported at: %s\n", e.ExportedAt.Format(time.RFC3339))
	b.WriteString(strings.Repeat("-", 50))
	b.WriteString("\n\n")
	for _, m := range e.Messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.CreatedAt.UTC().Format(time.DateTime), m.Sender, m.Content)
	}
	return b.String()
}

// Analytics summarises the live messages of a conversation.
func (s *MessageService) Analytics(ctx context.Context, conversationID, userID uuid.UUID) (*model.AnalyticsResponse, error) {
	if err := s.access.RequireParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	byType, err := s.msgRepo.CountByType(ctx, conversationID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	resp := &model.AnalyticsResponse{
		ConversationID: conversationID,
		ByType:         make(map[model.MessageType]int64, len(byType)),
	}
	for _, row := range byType {
		resp.ByType[row.Type] = row.Total
		resp.TotalMessages += row.Total
	}

	top, err := s.msgRepo.MostActiveSender(ctx, conversationID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if top != nil {
		active := &model.ActiveSender{UserID: top.SenderID, MessageCount: top.Total}
		if u, err := s.userRepo.FindByID(ctx, top.SenderID); err == nil {
			active.Name = u.Name
		}
		resp.MostActive = active
	}
	return resp, nil
}
