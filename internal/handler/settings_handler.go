package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/service"
)

// SettingsHandler serves per-conversation settings, drafts and push
// device registration.
type SettingsHandler struct {
	settings *service.SettingsService
}

func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetSettings godoc
// @Summary Get my settings for a conversation
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.ConversationSettings
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	settings, err := h.settings.Get(c.Request.Context(), convID, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Update my settings for a conversation
// @Description Only the fields present are changed. Unmuting clears muted_until.
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param body body model.UpdateSettingsRequest true "Fields to change"
// @Success 200 {object} model.ConversationSettings
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/settings [patch]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	settings, err := h.settings.Update(c.Request.Context(), convID, currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// GetDraft godoc
// @Summary Get my draft for a conversation
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.MessageDraft
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/draft [get]
func (h *SettingsHandler) GetDraft(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	draft, err := h.settings.GetDraft(c.Request.Context(), convID, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// SaveDraft godoc
// @Summary Save my draft for a conversation
// @Description Blank content clears the draft.
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param body body model.SaveDraftRequest true "Draft content"
// @Success 200 {object} model.MessageDraft
// @Success 204
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/draft [put]
func (h *SettingsHandler) SaveDraft(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	draft, err := h.settings.SaveDraft(c.Request.Context(), convID, currentUser(c), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	if draft == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// DeleteDraft godoc
// @Summary Discard my draft for a conversation
// @Tags Settings
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 204
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/draft [delete]
func (h *SettingsHandler) DeleteDraft(c *gin.Context) {
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.settings.DeleteDraft(c.Request.Context(), convID, currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterDevice godoc
// @Summary Register a device for push notifications
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterDeviceRequest true "FCM token"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /devices [post]
func (h *SettingsHandler) RegisterDevice(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.settings.RegisterDevice(c.Request.Context(), currentUser(c), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device registered"})
}
