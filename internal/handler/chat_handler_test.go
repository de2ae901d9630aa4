package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RequiresBearerToken(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "garbage", token: "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body model.ErrorResponse
			rec := s.do(t, http.MethodGet, "/api/v1/conversations", tt.token, nil, &body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, string(apperror.CodeUnauthenticated), body.Code)
		})
	}

	t.Run("revoked", func(t *testing.T) {
		_, token := s.user(t, "Alice")
		require.NoError(t, s.mr.Set("blacklist:"+token, "1"))
		rec := s.do(t, http.MethodGet, "/api/v1/conversations", token, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("health is public", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/health", "", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_DirectConversationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.user(t, "Alice")
	bob, bobToken := s.user(t, "Bob")

	var created model.DirectConversationResponse
	rec := s.do(t, http.MethodPost, "/api/v1/conversations/direct", aliceToken, model.DirectConversationRequest{ReceiverID: bob.ID}, &created)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, created.IsNew)
	convID := created.Conversation.ID
	base := "/api/v1/conversations/" + convID.String()

	var sent model.MessageView
	rec = s.do(t, http.MethodPost, base+"/messages", aliceToken, model.SendMessageRequest{Content: "hello"}, &sent)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Alice", sent.SenderName)

	var unread model.UnreadResponse
	s.do(t, http.MethodGet, "/api/v1/unread", bobToken, nil, &unread)
	assert.Equal(t, int64(1), unread.UnreadCount)

	var read model.MarkReadResponse
	rec = s.do(t, http.MethodPost, base+"/read", bobToken, nil, &read)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), read.Updated)

	s.do(t, http.MethodGet, base+"/unread", bobToken, nil, &unread)
	assert.Zero(t, unread.UnreadCount)

	var page model.MessagePage
	rec = s.do(t, http.MethodGet, base+"/messages?limit=10", bobToken, nil, &page)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "hello", page.Messages[0].Content)

	var inbox model.InboxResponse
	rec = s.do(t, http.MethodGet, "/api/v1/conversations?filter=direct", alice.ID.String(), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a user id is not a token")
	rec = s.do(t, http.MethodGet, "/api/v1/conversations?filter=direct", aliceToken, nil, &inbox)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, inbox.Conversations, 1)
	assert.Equal(t, "Bob", inbox.Conversations[0].DisplayName)
}

func Test_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.user(t, "Alice")
	bob, bobToken := s.user(t, "Bob")
	_, eveToken := s.user(t, "Eve")
	convID := s.direct(t, alice, bob)
	base := "/api/v1/conversations/" + convID.String()

	var sent model.MessageView
	s.do(t, http.MethodPost, base+"/messages", aliceToken, model.SendMessageRequest{Content: "mine"}, &sent)
	msgPath := "/api/v1/messages/" + sent.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   apperror.Code
	}{
		{"bad conversation id", http.MethodGet, "/api/v1/conversations/nope", aliceToken, nil, http.StatusBadRequest, apperror.CodeInvalidArgument},
		{"unknown conversation", http.MethodGet, "/api/v1/conversations/" + uuid.NewString(), aliceToken, nil, http.StatusNotFound, apperror.CodeNotFound},
		{"outsider reads", http.MethodGet, base + "/messages", eveToken, nil, http.StatusForbidden, apperror.CodeNotParticipant},
		{"outsider sends", http.MethodPost, base + "/messages", eveToken, model.SendMessageRequest{Content: "hi"}, http.StatusForbidden, apperror.CodeNotParticipant},
		{"empty message", http.MethodPost, base + "/messages", aliceToken, model.SendMessageRequest{Content: " "}, http.StatusBadRequest, apperror.CodeInvalidArgument},
		{"reply elsewhere", http.MethodPost, base + "/messages", aliceToken, model.SendMessageRequest{Content: "re", ReplyToID: ptr(uuid.New())}, http.StatusBadRequest, apperror.CodeInvalidReply},
		{"edit by non-sender", http.MethodPatch, msgPath, bobToken, model.EditMessageRequest{Content: "x"}, http.StatusForbidden, apperror.CodePermissionDenied},
		{"delete by non-sender", http.MethodDelete, msgPath, bobToken, nil, http.StatusForbidden, apperror.CodePermissionDenied},
		{"unknown reaction", http.MethodPost, msgPath + "/reactions", bobToken, model.ReactionRequest{ReactionType: "meh"}, http.StatusBadRequest, apperror.CodeInvalidArgument},
		{"unknown message", http.MethodDelete, "/api/v1/messages/" + uuid.NewString(), aliceToken, nil, http.StatusNotFound, apperror.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body model.ErrorResponse
			rec := s.do(t, tt.method, tt.path, tt.token, tt.body, &body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, string(tt.code), body.Code)
		})
	}
}

func Test_EditDeleteReactOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.user(t, "Alice")
	bob, bobToken := s.user(t, "Bob")
	convID := s.direct(t, alice, bob)

	var sent model.MessageView
	s.do(t, http.MethodPost, "/api/v1/conversations/"+convID.String()+"/messages", aliceToken, model.SendMessageRequest{Content: "typo"}, &sent)
	msgPath := "/api/v1/messages/" + sent.ID.String()

	var edited model.MessageView
	rec := s.do(t, http.MethodPatch, msgPath, aliceToken, model.EditMessageRequest{Content: "fixed"}, &edited)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, edited.IsEdited)

	var reaction model.ReactionResponse
	rec = s.do(t, http.MethodPost, msgPath+"/reactions", bobToken, model.ReactionRequest{ReactionType: model.ReactionLove}, &reaction)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ReactionAdded, reaction.Action)
	assert.Equal(t, int64(1), reaction.ReactionCounts[model.ReactionLove])

	rec = s.do(t, http.MethodDelete, msgPath, aliceToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodDelete, msgPath, aliceToken, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "deleting twice is a no-op")

	var results model.SearchResponse
	rec = s.do(t, http.MethodGet, "/api/v1/messages/search?q=fixed", bobToken, nil, &results)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, results.Results)
}

func Test_ExportOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.user(t, "Alice")
	bob, _ := s.user(t, "Bob")
	convID := s.direct(t, alice, bob)
	base := "/api/v1/conversations/" + convID.String()
	s.do(t, http.MethodPost, base+"/messages", aliceToken, model.SendMessageRequest{Content: "for the record"}, nil)

	rec := s.do(t, http.MethodGet, base+"/export?format=txt", aliceToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".txt")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Conversation: Bob\n"))
	assert.Contains(t, rec.Body.String(), "] Alice: for the record")

	var stats model.AnalyticsResponse
	rec = s.do(t, http.MethodGet, base+"/analytics", aliceToken, nil, &stats)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), stats.TotalMessages)
}

func Test_SendIsRateLimited(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.user(t, "Alice")
	bob, _ := s.user(t, "Bob")
	path := "/api/v1/conversations/" + s.direct(t, alice, bob).String() + "/messages"

	for i := 0; i < sendLimit; i++ {
		rec := s.do(t, http.MethodPost, path, aliceToken, model.SendMessageRequest{Content: "spam"}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var body model.ErrorResponse
	rec := s.do(t, http.MethodPost, path, aliceToken, model.SendMessageRequest{Content: "spam"}, &body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, string(apperror.CodeRateLimited), body.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func Test_SettingsAndDraftsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.user(t, "Alice")
	bob, _ := s.user(t, "Bob")
	base := "/api/v1/conversations/" + s.direct(t, alice, bob).String()

	var settings model.ConversationSettings
	rec := s.do(t, http.MethodPatch, base+"/settings", aliceToken, model.UpdateSettingsRequest{IsPinned: ptr(true)}, &settings)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, settings.IsPinned)

	var draft model.MessageDraft
	rec = s.do(t, http.MethodPut, base+"/draft", aliceToken, model.SaveDraftRequest{Content: "later"}, &draft)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "later", draft.Content)

	rec = s.do(t, http.MethodDelete, base+"/draft", aliceToken, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	draft = model.MessageDraft{}
	rec = s.do(t, http.MethodGet, base+"/draft", aliceToken, nil, &draft)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, draft.Content)

	rec = s.do(t, http.MethodPost, "/api/v1/devices", aliceToken, model.RegisterDeviceRequest{FCMToken: "tok", DeviceType: "web"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/v1/devices", aliceToken, model.RegisterDeviceRequest{FCMToken: "tok", DeviceType: "fridge"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func ptr[T any](v T) *T { return &v }
