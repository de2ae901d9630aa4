package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"gorm.io/gorm"
)

// SettingsService manages per-user conversation settings, drafts and push
// devices.
type SettingsService struct {
	settingsRepo *repository.SettingsRepository
	userRepo     *repository.UserRepository
	access       *Access
}

func NewSettingsService(settingsRepo *repository.SettingsRepository, userRepo *repository.UserRepository, access *Access) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo, userRepo: userRepo, access: access}
}

func (s *SettingsService) Get(ctx context.Context, conversationID, userID uuid.UUID) (*model.ConversationSettings, error) {
	if err := s.access.RequireParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	settings, err := s.settingsRepo.GetOrCreate(ctx, conversationID, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return settings, nil
}

// Update applies the fields present in req. Unmuting also clears
// muted_until.
func (s *SettingsService) Update(ctx context.Context, conversationID, userID uuid.UUID, req model.UpdateSettingsRequest) (*model.ConversationSettings, error) {
	if _, err := s.Get(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.IsMuted != nil {
		updates["is_muted"] = *req.IsMuted
		if !*req.IsMuted {
			updates["muted_until"] = nil
		}
	}
	if req.MutedUntil != nil {
		updates["muted_until"] = *req.MutedUntil
	}
	if req.IsArchived != nil {
		updates["is_archived"] = *req.IsArchived
	}
	if req.IsPinned != nil {
		updates["is_pinned"] = *req.IsPinned
	}
	if req.CustomNotifications != nil {
		updates["custom_notifications"] = *req.CustomNotifications
	}

	if err := s.settingsRepo.Update(ctx, conversationID, userID, updates); err != nil {
		return nil, apperror.Internal(err)
	}
	return s.Get(ctx, conversationID, userID)
}

// GetDraft returns the saved draft, or an empty one when there is none.
func (s *SettingsService) GetDraft(ctx context.Context, conversationID, userID uuid.UUID) (*model.MessageDraft, error) {
	if err := s.access.RequireParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	draft, err := s.settingsRepo.GetDraft(ctx, conversationID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.MessageDraft{ConversationID: conversationID, UserID: userID}, nil
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return draft, nil
}

// SaveDraft stores content; blank content clears the draft and returns nil.
func (s *SettingsService) SaveDraft(ctx context.Context, conversationID, userID uuid.UUID, content string) (*model.MessageDraft, error) {
	if err := s.access.RequireParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	draft, err := s.settingsRepo.SaveDraft(ctx, conversationID, userID, content)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return draft, nil
}

func (s *SettingsService) DeleteDraft(ctx context.Context, conversationID, userID uuid.UUID) error {
	if err := s.access.RequireParticipant(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.settingsRepo.DeleteDraft(ctx, conversationID, userID); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

// RegisterDevice records a push token for the user.
func (s *SettingsService) RegisterDevice(ctx context.Context, userID uuid.UUID, req model.RegisterDeviceRequest) error {
	if err := s.userRepo.AddDevice(ctx, userID, req.FCMToken, req.DeviceType); err != nil {
		return apperror.Internal(err)
	}
	return nil
}
