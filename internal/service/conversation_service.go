package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	inboxPageSize     = 20
	directHistorySize = 50
)

// ConversationService handles conversation business logic
type ConversationService struct {
	convRepo     *repository.ConversationRepository
	msgRepo      *repository.MessageRepository
	deliveryRepo *repository.DeliveryRepository
	settingsRepo *repository.SettingsRepository
	userRepo     *repository.UserRepository
	access       *Access
	dispatcher   *NotificationDispatcher
	urls         AttachmentURLs
	log          *zap.Logger
}

func NewConversationService(
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	deliveryRepo *repository.DeliveryRepository,
	settingsRepo *repository.SettingsRepository,
	userRepo *repository.UserRepository,
	access *Access,
	dispatcher *NotificationDispatcher,
	urls AttachmentURLs,
	log *zap.Logger,
) *ConversationService {
	return &ConversationService{
		convRepo:     convRepo,
		msgRepo:      msgRepo,
		deliveryRepo: deliveryRepo,
		settingsRepo: settingsRepo,
		userRepo:     userRepo,
		access:       access,
		dispatcher:   dispatcher,
		urls:         urls,
		log:          log,
	}
}

// CheckAccess decides whether userID may use the conversation.
func (s *ConversationService) CheckAccess(ctx context.Context, userID, conversationID uuid.UUID) (Decision, error) {
	return s.access.CheckAccess(ctx, userID, conversationID)
}

// ParticipantIDs returns the (cached) members of a conversation.
func (s *ConversationService) ParticipantIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.access.ParticipantIDs(ctx, conversationID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return ids, nil
}

// GetOrCreateDirect returns the one direct conversation between myID and
// partnerID together with its latest messages.
func (s *ConversationService) GetOrCreateDirect(ctx context.Context, myID, partnerID uuid.UUID) (*model.DirectConversationResponse, error) {
	if myID == partnerID {
		return nil, apperror.InvalidArg("cannot start a conversation with yourself")
	}
	if _, err := s.userRepo.FindByID(ctx, partnerID); err != nil {
		return nil, storeError(err, apperror.ErrUserMissing)
	}

	conv, created, err := s.convRepo.GetOrCreateDirect(ctx, myID, partnerID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if created {
		s.access.Invalidate(ctx, conv.ID)
	}

	resp, err := s.conversationResponse(ctx, conv, myID)
	if err != nil {
		return nil, err
	}

	messages := []model.MessageView{}
	if !created {
		history, err := s.msgRepo.History(ctx, conv.ID, nil, directHistorySize)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		messages = viewsOf(history, s.urls)
	}

	return &model.DirectConversationResponse{
		Conversation: *resp,
		Messages:     messages,
		IsNew:        created,
	}, nil
}

// CreateGroup creates a group administered by creatorID. The creator is
// always a participant; duplicates in the request are ignored.
func (s *ConversationService) CreateGroup(ctx context.Context, creatorID uuid.UUID, req model.CreateGroupRequest) (*model.GroupCreatedResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.InvalidArg("group name is required")
	}

	memberIDs := []uuid.UUID{creatorID}
	seen := map[uuid.UUID]bool{creatorID: true}
	for _, id := range req.ParticipantIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		memberIDs = append(memberIDs, id)
	}
	if len(memberIDs) < 2 {
		return nil, apperror.InvalidArg("a group needs at least one other participant")
	}

	users, err := s.userRepo.FindByIDs(ctx, memberIDs)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(users) != len(memberIDs) {
		return nil, apperror.ErrUserMissing
	}
	creator := users[creatorID]

	conv := &model.Conversation{
		IsGroup:     true,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		AdminID:     &creatorID,
	}
	systemMsg := &model.Message{
		SenderID: creatorID,
		Type:     model.MessageTypeSystem,
		Content:  fmt.Sprintf("%s created the group %q", creator.Name, name),
		Metadata: datatypes.JSONMap{"event": "group_created"},
	}
	if err := s.convRepo.CreateGroup(ctx, conv, memberIDs, systemMsg); err != nil {
		return nil, apperror.Internal(err)
	}
	s.access.Invalidate(ctx, conv.ID)

	created, err := s.convRepo.FindByID(ctx, conv.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	s.dispatcher.GroupCreated(created, &creator, memberIDs)

	resp, err := s.conversationResponse(ctx, created, creatorID)
	if err != nil {
		return nil, err
	}
	systemMsg.Sender = creator

	s.log.Info("group created",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("admin_id", creatorID.String()),
		zap.Int("participants", len(memberIDs)),
	)
	return &model.GroupCreatedResponse{
		Conversation:  *resp,
		SystemMessage: viewOf(systemMsg, s.urls),
	}, nil
}

// GetConversation returns a conversation the user participates in.
func (s *ConversationService) GetConversation(ctx context.Context, conversationID, userID uuid.UUID) (*model.ConversationResponse, error) {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, storeError(err, apperror.ErrConversationMissing)
	}
	if err := s.access.RequireParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.conversationResponse(ctx, conv, userID)
}

// ListConversations returns one page of the user's inbox.
func (s *ConversationService) ListConversations(ctx context.Context, userID uuid.UUID, req model.InboxRequest) (*model.InboxResponse, error) {
	filter := req.Filter
	if filter == "" {
		filter = model.InboxAll
	}
	page := req.Page
	if page < 1 {
		page = 1
	}

	conversations, err := s.convRepo.ListForUser(ctx, repository.InboxQuery{
		UserID: userID,
		Filter: filter,
		Search: req.Search,
		Limit:  inboxPageSize + 1,
		Offset: (page - 1) * inboxPageSize,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	hasMore := len(conversations) > inboxPageSize
	if hasMore {
		conversations = conversations[:inboxPageSize]
	}

	ids := make([]uuid.UUID, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.ID)
	}
	unread, err := s.deliveryRepo.UnreadByConversation(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	settings, err := s.settingsRepo.ForUser(ctx, userID, ids)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	var totalUnread int64
	for _, n := range unread {
		totalUnread += n
	}

	items := make([]model.ConversationResponse, 0, len(conversations))
	for i := range conversations {
		conv := &conversations[i]
		item := model.ConversationResponse{
			Conversation: *conv,
			DisplayName:  conv.DisplayName(userID),
			UnreadCount:  unread[conv.ID],
		}
		if last, err := s.msgRepo.GetLastMessage(ctx, conv.ID); err == nil {
			view := viewOf(last, s.urls)
			item.LastMessage = &view
		}
		if cs, ok := settings[conv.ID]; ok {
			item.Settings = &cs
		}
		items = append(items, item)
	}

	return &model.InboxResponse{
		Conversations: items,
		TotalUnread:   totalUnread,
		Page:          page,
		PageSize:      inboxPageSize,
		HasMore:       hasMore,
	}, nil
}

// MarkRead marks every message of the conversation read for userID.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) (*model.MarkReadResponse, error) {
	if err := s.access.RequireParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	now := time.Now()
	updated, err := s.deliveryRepo.MarkConversationRead(ctx, conversationID, userID, now)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &model.MarkReadResponse{Updated: updated, ReadAt: now}, nil
}

// UnreadCount counts the user's unread messages across all conversations.
func (s *ConversationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.deliveryRepo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

func (s *ConversationService) UnreadForConversation(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	if err := s.access.RequireParticipant(ctx, userID, conversationID); err != nil {
		return 0, err
	}
	n, err := s.deliveryRepo.UnreadCountForConversation(ctx, conversationID, userID)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

func (s *ConversationService) conversationResponse(ctx context.Context, conv *model.Conversation, viewer uuid.UUID) (*model.ConversationResponse, error) {
	resp := &model.ConversationResponse{
		Conversation: *conv,
		DisplayName:  conv.DisplayName(viewer),
	}

	unread, err := s.deliveryRepo.UnreadCountForConversation(ctx, conv.ID, viewer)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	resp.UnreadCount = unread

	if last, err := s.msgRepo.GetLastMessage(ctx, conv.ID); err == nil {
		view := viewOf(last, s.urls)
		resp.LastMessage = &view
	}

	settings, err := s.settingsRepo.ForUser(ctx, viewer, []uuid.UUID{conv.ID})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if cs, ok := settings[conv.ID]; ok {
		resp.Settings = &cs
	}
	return resp, nil
}
