package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"github.com/quocanhngo/chatcore/pkg/ratelimit"
	"go.uber.org/zap"
)

// Routes wires the handlers onto a router.
type Routes struct {
	Chat     *ChatHandler
	Settings *SettingsHandler
	WS       *WSHandler

	Verifier    *auth.Verifier
	Activity    middleware.ActivityToucher // optional
	SendLimiter ratelimit.Limiter          // optional
	Log         *zap.Logger
}

// Register mounts the REST API under /api/v1, the gateway under /ws and
// the health check.
func (rt Routes) Register(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "chatcore",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(rt.Verifier, rt.Log))
	if rt.Activity != nil {
		api.Use(middleware.ActivityMiddleware(rt.Activity, rt.Log))
	}

	sendMessage := []gin.HandlerFunc{rt.Chat.SendMessage}
	if rt.SendLimiter != nil {
		sendMessage = append([]gin.HandlerFunc{middleware.RateLimitMiddleware(rt.SendLimiter, rt.Log)}, sendMessage...)
	}

	{
		// Conversations
		api.GET("/conversations", rt.Chat.ListConversations)
		api.POST("/conversations/direct", rt.Chat.GetOrCreateDirect)
		api.POST("/conversations/group", rt.Chat.CreateGroup)
		api.GET("/conversations/:id", rt.Chat.GetConversation)
		api.POST("/conversations/:id/read", rt.Chat.MarkAsRead)
		api.GET("/conversations/:id/unread", rt.Chat.GetConversationUnread)
		api.GET("/conversations/:id/export", rt.Chat.ExportConversation)
		api.GET("/conversations/:id/analytics", rt.Chat.GetAnalytics)
		api.GET("/unread", rt.Chat.GetUnreadCount)

		// Messages
		api.GET("/conversations/:id/messages", rt.Chat.GetMessages)
		api.POST("/conversations/:id/messages", sendMessage...)
		api.GET("/messages/search", rt.Chat.SearchMessages)
		api.PATCH("/messages/:id", rt.Chat.EditMessage)
		api.DELETE("/messages/:id", rt.Chat.DeleteMessage)
		api.POST("/messages/:id/reactions", rt.Chat.ToggleReaction)

		// Settings, drafts, devices
		api.GET("/conversations/:id/settings", rt.Settings.GetSettings)
		api.PATCH("/conversations/:id/settings", rt.Settings.UpdateSettings)
		api.GET("/conversations/:id/draft", rt.Settings.GetDraft)
		api.PUT("/conversations/:id/draft", rt.Settings.SaveDraft)
		api.DELETE("/conversations/:id/draft", rt.Settings.DeleteDraft)
		api.POST("/devices", rt.Settings.RegisterDevice)
	}

	// WebSocket endpoints (auth via query parameter)
	router.GET("/ws/conversations/:id", rt.WS.HandleConversation)
	router.GET("/ws/notifications", rt.WS.HandleNotifications)
}
