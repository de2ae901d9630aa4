package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/service"
	"github.com/quocanhngo/chatcore/internal/ws"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"github.com/quocanhngo/chatcore/pkg/ratelimit"
	"go.uber.org/zap"
)

// WSHandler handles WebSocket connections
type WSHandler struct {
	hub      *ws.Hub
	convs    *service.ConversationService
	messages *service.MessageService
	verifier *auth.Verifier
	limiter  ratelimit.Limiter
	activity middleware.ActivityToucher
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWSHandler builds the gateway. limiter and activity may be nil.
// origins lists the allowed browser origins; "*" allows any.
func NewWSHandler(
	hub *ws.Hub,
	convs *service.ConversationService,
	messages *service.MessageService,
	verifier *auth.Verifier,
	limiter ratelimit.Limiter,
	activity middleware.ActivityToucher,
	origins []string,
	log *zap.Logger,
) *WSHandler {
	return &WSHandler{
		hub:      hub,
		convs:    convs,
		messages: messages,
		verifier: verifier,
		limiter:  limiter,
		activity: activity,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
		log: log,
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(origins, "*") {
			return true
		}
		return slices.ContainsFunc(origins, func(o string) bool {
			return strings.EqualFold(o, origin)
		})
	}
}

// HandleConversation godoc
// @Summary Join a conversation's real-time channel
// @Description Upgrades to WebSocket. Connect with ws://host/ws/conversations/{id}?token=<jwt>
// @Tags WebSocket
// @Param id path string true "Conversation ID"
// @Param token query string true "JWT"
// @Success 101
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /ws/conversations/{id} [get]
func (h *WSHandler) HandleConversation(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	decision, err := h.convs.CheckAccess(c.Request.Context(), claims.UserID, convID)
	if err != nil {
		respondError(c, err)
		return
	}
	switch decision {
	case service.RequiresAuth:
		respondError(c, apperror.ErrUnauthenticated)
		return
	case service.Denied:
		respondError(c, apperror.ErrNotParticipant)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	group := ws.ConversationGroup(convID)
	client := ws.NewClient(h.hub, conn, group, claims.UserID, claims.Name)
	if h.hub.Register(client) {
		h.hub.BroadcastExceptUser(group, client.UserID, statusFrame(client, true))
	}
	h.log.Info("ws connected",
		zap.String("user_id", claims.UserID.String()),
		zap.String("conversation_id", convID.String()))

	go client.WritePump()
	go client.ReadPump(h.conversationFrames(convID), h.leave)
}

// HandleNotifications godoc
// @Summary Join the personal notification channel
// @Description Receives new_message and conversation_invitation events for the authenticated user.
// @Tags WebSocket
// @Param token query string true "JWT"
// @Success 101
// @Failure 401 {object} model.ErrorResponse
// @Router /ws/notifications [get]
func (h *WSHandler) HandleNotifications(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, ws.UserGroup(claims.UserID), claims.UserID, claims.Name)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(func(client *ws.Client, frame model.InboundFrame) {
		h.touch(client.UserID)
		client.SendError(apperror.MalformedFrame("this channel only delivers notifications"))
	}, func(client *ws.Client) {
		h.hub.Unregister(client)
	})
}

// authenticate checks the token query parameter; browsers cannot set
// headers on a WebSocket handshake.
func (h *WSHandler) authenticate(c *gin.Context) (*auth.Claims, bool) {
	claims, err := h.verifier.Verify(c.Request.Context(), c.Query("token"))
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRevokedToken):
		respondError(c, apperror.ErrUnauthenticated)
		return nil, false
	case err != nil:
		h.log.Error("ws: token check failed", zap.Error(err))
		respondError(c, apperror.Internal(err))
		return nil, false
	}
	return claims, true
}

func (h *WSHandler) leave(client *ws.Client) {
	if h.hub.Unregister(client) {
		h.hub.BroadcastExceptUser(client.Group(), client.UserID, statusFrame(client, false))
	}
	h.log.Info("ws disconnected", zap.String("user_id", client.UserID.String()), zap.String("group", client.Group()))
}

// conversationFrames processes the frames of one conversation connection.
// Persistence runs on a background context so a disconnect never cancels
// a send that is already under way.
func (h *WSHandler) conversationFrames(convID uuid.UUID) ws.FrameHandler {
	group := ws.ConversationGroup(convID)

	return func(client *ws.Client, frame model.InboundFrame) {
		ctx := context.Background()
		h.touch(client.UserID)

		switch frame.Type {
		case model.FrameChatMessage:
			h.chatMessage(ctx, client, convID, frame)

		case model.FrameTyping:
			if frame.IsTyping == nil {
				client.SendError(apperror.MalformedFrame("is_typing is required"))
				return
			}
			h.hub.BroadcastExceptConn(group, client, model.TypingFrame{
				Type:     model.FrameTypingIndicator,
				UserID:   client.UserID,
				Username: client.Name,
				IsTyping: *frame.IsTyping,
			})

		case model.FrameMarkAsRead:
			resp, err := h.convs.MarkRead(ctx, convID, client.UserID)
			if err != nil {
				client.SendError(err)
				return
			}
			h.hub.BroadcastExceptConn(group, client, model.MessagesReadFrame{
				Type:           model.FrameMessagesRead,
				ConversationID: convID,
				UserID:         client.UserID,
				Username:       client.Name,
				ReadAt:         resp.ReadAt,
			})

		case model.FrameMessageReaction:
			h.reaction(ctx, client, frame)

		default:
			client.SendError(apperror.MalformedFrame("unknown frame type " + frame.Type))
		}
	}
}

func (h *WSHandler) chatMessage(ctx context.Context, client *ws.Client, convID uuid.UUID, frame model.InboundFrame) {
	if frame.Content == nil || strings.TrimSpace(*frame.Content) == "" {
		client.SendError(apperror.MalformedFrame("content is required"))
		return
	}

	var replyTo *uuid.UUID
	if frame.ReplyToID != nil && *frame.ReplyToID != "" {
		id, err := uuid.Parse(*frame.ReplyToID)
		if err != nil {
			client.SendError(apperror.MalformedFrame("reply_to_id is not a valid id"))
			return
		}
		replyTo = &id
	}

	if h.limiter != nil {
		decision, err := h.limiter.Allow(ctx, client.UserID.String())
		switch {
		case err != nil:
			h.log.Warn("rate limiter unavailable", zap.Error(err))
		case !decision.Allowed:
			client.SendError(apperror.ErrRateLimited)
			return
		}
	}

	view, err := h.messages.Send(ctx, service.SendParams{
		SenderID:       client.UserID,
		ConversationID: convID,
		Content:        *frame.Content,
		ReplyToID:      replyTo,
	})
	if err != nil {
		client.SendError(err)
		return
	}

	h.hub.Broadcast(ws.ConversationGroup(convID), model.ChatMessageFrame{
		Type:    model.FrameChatMessage,
		Message: *view,
	})
}

func (h *WSHandler) reaction(ctx context.Context, client *ws.Client, frame model.InboundFrame) {
	if frame.MessageID == nil || frame.ReactionType == nil {
		client.SendError(apperror.MalformedFrame("message_id and reaction_type are required"))
		return
	}
	msgID, err := uuid.Parse(*frame.MessageID)
	if err != nil {
		client.SendError(apperror.MalformedFrame("message_id is not a valid id"))
		return
	}

	resp, err := h.messages.ToggleReaction(ctx, msgID, client.UserID, *frame.ReactionType)
	if err != nil {
		client.SendError(err)
		return
	}
	h.hub.Broadcast(ws.ConversationGroup(resp.ConversationID), reactionFrame(resp, client.UserID, client.Name))
}

func (h *WSHandler) touch(userID uuid.UUID) {
	if h.activity == nil {
		return
	}
	if err := h.activity.Touch(context.Background(), userID); err != nil {
		h.log.Warn("activity touch failed", zap.Error(err))
	}
}

func statusFrame(client *ws.Client, online bool) model.UserStatusFrame {
	status := "offline"
	if online {
		status = "online"
	}
	return model.UserStatusFrame{
		Type:     model.FrameUserStatus,
		UserID:   client.UserID,
		Username: client.Name,
		Status:   status,
		IsOnline: online,
	}
}
