package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/pkg/mailer"
)

// NewMessageMailer is the email transport.
type NewMessageMailer interface {
	SendNewMessage(toEmail string, email mailer.NewMessageEmail) error
}

// MessagePusher is the push transport.
type MessagePusher interface {
	SendMessageNotification(ctx context.Context, receiverID uuid.UUID, senderName, content string, conversationID uuid.UUID) error
}

// EmailSender emails recipients who have notifications enabled.
type EmailSender struct {
	users  *repository.UserRepository
	mail   NewMessageMailer
	appURL string
}

func NewEmailSender(users *repository.UserRepository, mail NewMessageMailer, appURL string) *EmailSender {
	return &EmailSender{users: users, mail: mail, appURL: strings.TrimRight(appURL, "/")}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, notice OutOfBandNotice) error {
	user, err := s.users.FindByID(ctx, notice.RecipientID)
	if err != nil {
		return err
	}
	if !user.IsNotificationEnabled || user.Email == "" {
		return nil
	}

	preview := notice.Preview
	if preview == "" {
		preview = "Sent an attachment"
	}

	email := mailer.NewMessageEmail{
		RecipientName:    user.Name,
		SenderName:       notice.SenderName,
		ConversationName: notice.ConversationName,
		Preview:          preview,
	}
	if s.appURL != "" {
		email.Link = s.appURL + "/conversations/" + notice.ConversationID.String()
	}
	return s.mail.SendNewMessage(user.Email, email)
}

// PushSender forwards notices to the push transport.
type PushSender struct {
	push MessagePusher
}

func NewPushSender(push MessagePusher) *PushSender {
	return &PushSender{push: push}
}

func (s *PushSender) Name() string { return "push" }

func (s *PushSender) Send(ctx context.Context, notice OutOfBandNotice) error {
	return s.push.SendMessageNotification(ctx, notice.RecipientID, notice.SenderName, notice.Preview, notice.ConversationID)
}
