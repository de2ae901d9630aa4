package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"go.uber.org/zap"
)

//go:generate mockgen -source=notification_dispatcher.go -destination=mock_dispatcher_test.go -package=service

const (
	noticePreviewLength = 100
	outOfBandTimeout    = 15 * time.Second
)

// UserChannel delivers an event to every live connection of a user.
type UserChannel interface {
	SendToUser(userID uuid.UUID, event any)
}

// ActivityChecker reports whether a user has been seen recently.
type ActivityChecker interface {
	RecentlyActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

// OutOfBandNotice is what an email or push notification says about a new
// message.
type OutOfBandNotice struct {
	RecipientID      uuid.UUID
	ConversationID   uuid.UUID
	ConversationName string
	SenderName       string
	Preview          string
	MessageType      model.MessageType
}

// OutOfBandSender delivers notices outside the real-time channel.
type OutOfBandSender interface {
	Name() string
	Send(ctx context.Context, notice OutOfBandNotice) error
}

// NotificationDispatcher decides, per recipient, which supplementary
// notifications a persisted message triggers. Nothing it does can fail the
// send that triggered it.
type NotificationDispatcher struct {
	convRepo     *repository.ConversationRepository
	settingsRepo *repository.SettingsRepository
	channel      UserChannel
	activity     ActivityChecker
	senders      []OutOfBandSender
	log          *zap.Logger
	wg           sync.WaitGroup
}

func NewNotificationDispatcher(
	convRepo *repository.ConversationRepository,
	settingsRepo *repository.SettingsRepository,
	channel UserChannel,
	activity ActivityChecker,
	log *zap.Logger,
	senders ...OutOfBandSender,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		convRepo:     convRepo,
		settingsRepo: settingsRepo,
		channel:      channel,
		activity:     activity,
		senders:      senders,
		log:          log,
	}
}

// MessageSent notifies every recipient of msg in the background and
// returns at once. msg must have its Sender preloaded and must not be
// modified afterwards.
func (d *NotificationDispatcher) MessageSent(ctx context.Context, msg *model.Message, recipients []uuid.UUID) {
	if msg.Type == model.MessageTypeSystem || len(recipients) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.notifyRecipients(ctx, msg, recipients)
	}()
}

func (d *NotificationDispatcher) notifyRecipients(ctx context.Context, msg *model.Message, recipients []uuid.UUID) {
	conv, err := d.convRepo.FindByID(ctx, msg.ConversationID)
	if err != nil {
		d.log.Error("dispatcher: load conversation", zap.String("conversation_id", msg.ConversationID.String()), zap.Error(err))
		return
	}

	now := time.Now()
	for _, recipientID := range recipients {
		settings, err := d.settingsRepo.GetOrCreate(ctx, conv.ID, recipientID)
		if err != nil {
			d.log.Error("dispatcher: load settings", zap.String("recipient_id", recipientID.String()), zap.Error(err))
			continue
		}
		if settings.Silenced(now) {
			continue
		}

		name := conv.DisplayName(recipientID)
		preview := model.Truncate(msg.Content, noticePreviewLength)
		d.channel.SendToUser(recipientID, model.NewMessageFrame{
			Type: model.FrameNewMessage,
			Message: model.NewMessageNotice{
				ID:               msg.ID,
				ConversationID:   conv.ID,
				ConversationName: name,
				SenderName:       msg.Sender.Name,
				SenderAvatar:     msg.Sender.Avatar,
				Content:          preview,
				MessageType:      msg.Type,
				CreatedAt:        msg.CreatedAt,
			},
		})

		if conv.IsGroup || d.recentlyActive(ctx, recipientID) {
			continue
		}
		d.sendOutOfBand(ctx, OutOfBandNotice{
			RecipientID:      recipientID,
			ConversationID:   conv.ID,
			ConversationName: name,
			SenderName:       msg.Sender.Name,
			Preview:          preview,
			MessageType:      msg.Type,
		})
	}
}

// GroupCreated invites every participant except the creator.
func (d *NotificationDispatcher) GroupCreated(conv *model.Conversation, creator *model.User, invitees []uuid.UUID) {
	for _, id := range invitees {
		if id == creator.ID {
			continue
		}
		d.channel.SendToUser(id, model.InvitationFrame{
			Type:             model.FrameConversationInvitation,
			ConversationID:   conv.ID,
			ConversationName: conv.Name,
			InvitedBy:        creator.Name,
		})
	}
}

// Wait blocks until every in-flight notification has finished.
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}

func (d *NotificationDispatcher) recentlyActive(ctx context.Context, userID uuid.UUID) bool {
	if d.activity == nil {
		return false
	}
	active, err := d.activity.RecentlyActive(ctx, userID)
	if err != nil {
		// unknown activity counts as away
		d.log.Warn("dispatcher: activity lookup", zap.String("user_id", userID.String()), zap.Error(err))
		return false
	}
	return active
}

func (d *NotificationDispatcher) sendOutOfBand(ctx context.Context, notice OutOfBandNotice) {
	base := context.WithoutCancel(ctx)
	for _, sender := range d.senders {
		d.wg.Add(1)
		go func(sender OutOfBandSender) {
			defer d.wg.Done()

			sendCtx, cancel := context.WithTimeout(base, outOfBandTimeout)
			defer cancel()

			if err := sender.Send(sendCtx, notice); err != nil {
				d.log.Warn("out-of-band notification not delivered",
					zap.String("channel", sender.Name()),
					zap.String("recipient_id", notice.RecipientID.String()),
					zap.String("conversation_id", notice.ConversationID.String()),
					zap.String("code", string(apperror.CodeTransientDeliveryFailure)),
					zap.Error(apperror.ErrDeliveryFailed(err)),
				)
			}
		}(sender)
	}
}
