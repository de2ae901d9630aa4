package notification

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/repository"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// multicaster is the part of the FCM client the push service needs.
type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// PushService sends FCM push notifications to a user's registered devices.
type PushService struct {
	client   multicaster
	userRepo *repository.UserRepository
	log      *zap.Logger
}

// NewPushService initialises FCM from a service account file. It returns a
// nil service when credentials are missing or invalid, so a server without
// Firebase still starts.
func NewPushService(ctx context.Context, credentialsFile string, userRepo *repository.UserRepository, log *zap.Logger) *PushService {
	if credentialsFile == "" {
		log.Warn("firebase credentials not provided, push notifications disabled")
		return nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		log.Warn("failed to initialize firebase app, push notifications disabled", zap.Error(err))
		return nil
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Warn("failed to get messaging client, push notifications disabled", zap.Error(err))
		return nil
	}

	log.Info("firebase FCM initialized")
	return &PushService{client: client, userRepo: userRepo, log: log}
}

// SendMessageNotification pushes a new-message alert to every device of
// receiverID. Users who turned notifications off are skipped.
func (s *PushService) SendMessageNotification(ctx context.Context, receiverID uuid.UUID, senderName, content string, conversationID uuid.UUID) error {
	if s == nil || s.client == nil {
		return nil
	}

	user, err := s.userRepo.FindByID(ctx, receiverID)
	if err != nil {
		return err
	}
	if !user.IsNotificationEnabled {
		return nil
	}

	devices, err := s.userRepo.GetUserDevices(ctx, receiverID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	if content == "" {
		content = "Sent an attachment"
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.FCMToken)
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: senderName,
			Body:  content,
		},
		Data: map[string]string{
			"type":            "new_message",
			"conversation_id": conversationID.String(),
			"sender_name":     senderName,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ClickAction: "FLUTTER_NOTIFICATION_CLICK",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	br, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	if br.FailureCount > 0 {
		for idx, resp := range br.Responses {
			if !resp.Success {
				s.log.Warn("fcm delivery failed", zap.String("device_token", tokens[idx]), zap.Error(resp.Error))
			}
		}
		if br.SuccessCount == 0 {
			return fmt.Errorf("fcm: all %d devices failed", br.FailureCount)
		}
	}

	return nil
}
