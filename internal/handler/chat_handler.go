package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/service"
	"github.com/quocanhngo/chatcore/internal/ws"
)

// ChatHandler handles conversation and message HTTP endpoints
type ChatHandler struct {
	convs    *service.ConversationService
	messages *service.MessageService
	hub      *ws.Hub
}

func NewChatHandler(convs *service.ConversationService, messages *service.MessageService, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{convs: convs, messages: messages, hub: hub}
}

// ListConversations godoc
// @Summary List the current user's conversations
// @Description Pinned first, then most recently active. Includes unread counts and the last message.
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param filter query string false "all, unread, groups, direct or archived"
// @Param search query string false "Name filter"
// @Param page query int false "Page (default: 1)"
// @Success 200 {object} model.InboxResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /conversations [get]
func (h *ChatHandler) ListConversations(c *gin.Context) {
	var req model.InboxRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.convs.ListConversations(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrCreateDirect godoc
// @Summary Get or create direct conversation
// @Description Find existing private chat with user, or create new one. Returns conversation + messages.
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.DirectConversationRequest true "Partner ID"
// @Success 200 {object} model.DirectConversationResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /conversations/direct [post]
func (h *ChatHandler) GetOrCreateDirect(c *gin.Context) {
	var req model.DirectConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.convs.GetOrCreateDirect(c.Request.Context(), currentUser(c), req.ReceiverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateGroup godoc
// @Summary Create a group conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateGroupRequest true "Group name and participants"
// @Success 201 {object} model.GroupCreatedResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /conversations/group [post]
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	var req model.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.convs.CreateGroup(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetConversation godoc
// @Summary Get a specific conversation
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.ConversationResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /conversations/{id} [get]
func (h *ChatHandler) GetConversation(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.convs.GetConversation(c.Request.Context(), convID, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SendMessage godoc
// @Summary Send a message to a conversation
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param body body model.SendMessageRequest true "Send message request"
// @Success 201 {object} model.MessageView
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Router /conversations/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.messages.Send(c.Request.Context(), service.SendParams{
		SenderID:       currentUser(c),
		ConversationID: convID,
		Content:        req.Content,
		Type:           req.Type,
		AttachmentKey:  req.AttachmentKey,
		AttachmentName: req.AttachmentName,
		ReplyToID:      req.ReplyToID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(ws.ConversationGroup(convID), model.ChatMessageFrame{
		Type:    model.FrameChatMessage,
		Message: *view,
	})
	c.JSON(http.StatusCreated, view)
}

// GetMessages godoc
// @Summary Get messages for a conversation
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param before query string false "Cursor: message ID to get messages before"
// @Param limit query int false "Number of messages to return (default: 50, max: 100)"
// @Success 200 {object} model.MessagePage
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.MessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.messages.History(c.Request.Context(), convID, currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// MarkAsRead godoc
// @Summary Mark all messages in a conversation as read
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.MarkReadResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/read [post]
func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	userID := currentUser(c)
	resp, err := h.convs.MarkRead(c.Request.Context(), convID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastExceptUser(ws.ConversationGroup(convID), userID, model.MessagesReadFrame{
		Type:           model.FrameMessagesRead,
		ConversationID: convID,
		UserID:         userID,
		Username:       currentUserName(c),
		ReadAt:         resp.ReadAt,
	})
	c.JSON(http.StatusOK, resp)
}

// GetConversationUnread godoc
// @Summary Unread messages in one conversation
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.UnreadResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/unread [get]
func (h *ChatHandler) GetConversationUnread(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	n, err := h.convs.UnreadForConversation(c.Request.Context(), convID, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.UnreadResponse{UnreadCount: n})
}

// GetUnreadCount godoc
// @Summary Unread messages across all conversations
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.UnreadResponse
// @Router /unread [get]
func (h *ChatHandler) GetUnreadCount(c *gin.Context) {
	n, err := h.convs.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.UnreadResponse{UnreadCount: n})
}

// EditMessage godoc
// @Summary Edit a message
// @Description Only the sender can edit; deleted messages cannot be edited.
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Param body body model.EditMessageRequest true "New content"
// @Success 200 {object} model.MessageView
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /messages/{id} [patch]
func (h *ChatHandler) EditMessage(c *gin.Context) {
	msgID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.messages.Edit(c.Request.Context(), msgID, currentUser(c), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(ws.ConversationGroup(view.ConversationID), model.MessageEditedFrame{
		Type:    model.FrameMessageEdited,
		Message: *view,
	})
	c.JSON(http.StatusOK, view)
}

// DeleteMessage godoc
// @Summary Delete a message
// @Description Soft delete: the message stays in history as a tombstone. Deleting twice is a no-op.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /messages/{id} [delete]
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	msgID, ok := pathID(c, "id")
	if !ok {
		return
	}

	tomb, deleted, err := h.messages.SoftDelete(c.Request.Context(), msgID, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if deleted {
		frame := model.MessageDeletedFrame{
			Type:           model.FrameMessageDeleted,
			MessageID:      tomb.ID,
			ConversationID: tomb.ConversationID,
		}
		if tomb.DeletedAt != nil {
			frame.DeletedAt = *tomb.DeletedAt
		}
		h.hub.Broadcast(ws.ConversationGroup(tomb.ConversationID), frame)
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Message deleted"})
}

// ToggleReaction godoc
// @Summary Add, switch or remove a reaction
// @Description Same reaction again removes it; a different one replaces it.
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Param body body model.ReactionRequest true "Reaction"
// @Success 200 {object} model.ReactionResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /messages/{id}/reactions [post]
func (h *ChatHandler) ToggleReaction(c *gin.Context) {
	msgID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	userID := currentUser(c)
	resp, err := h.messages.ToggleReaction(c.Request.Context(), msgID, userID, req.ReactionType)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(ws.ConversationGroup(resp.ConversationID), reactionFrame(resp, userID, currentUserName(c)))
	c.JSON(http.StatusOK, resp)
}

// SearchMessages godoc
// @Summary Search messages
// @Description Case-insensitive search over the conversations the user belongs to. Deleted messages never match.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search text"
// @Param conversation_id query string false "Restrict to one conversation"
// @Param message_type query string false "Restrict to one message type"
// @Param page query int false "Page (default: 1)"
// @Success 200 {object} model.SearchResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /messages/search [get]
func (h *ChatHandler) SearchMessages(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.messages.Search(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportConversation godoc
// @Summary Export a conversation
// @Tags Conversations
// @Produce json
// @Produce plain
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param format query string false "json (default) or txt"
// @Success 200 {file} file
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/export [get]
func (h *ChatHandler) ExportConversation(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	file, err := h.messages.Export(c.Request.Context(), convID, currentUser(c), model.ExportFormat(c.Query("format")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// GetAnalytics godoc
// @Summary Conversation statistics
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.AnalyticsResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/analytics [get]
func (h *ChatHandler) GetAnalytics(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.messages.Analytics(c.Request.Context(), convID, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func reactionFrame(resp *model.ReactionResponse, userID uuid.UUID, username string) model.ReactionFrame {
	return model.ReactionFrame{
		Type:           model.FrameMessageReaction,
		MessageID:      resp.MessageID,
		UserID:         userID,
		Username:       username,
		ReactionType:   resp.ReactionType,
		Action:         resp.Action,
		ReactionCounts: resp.ReactionCounts,
	}
}
