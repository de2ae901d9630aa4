package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/internal/service"
	"github.com/quocanhngo/chatcore/internal/testutil"
	"github.com/quocanhngo/chatcore/internal/ws"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"github.com/quocanhngo/chatcore/pkg/cache"
	"github.com/quocanhngo/chatcore/pkg/ratelimit"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const sendLimit = 5

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	mr     *miniredis.Miniredis
	jwt    *auth.JWTManager
	hub    *ws.Hub
	convs  *service.ConversationService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := testutil.NewLogger()
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)

	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	userRepo := repository.NewUserRepository(db)

	hub := ws.NewHub(nil, log)
	activity := service.NewActivityTracker(rdb, 5*time.Minute)
	access := service.NewAccess(convRepo, cache.New(rdb, "chatcore", 5*time.Minute), log)
	dispatcher := service.NewNotificationDispatcher(convRepo, settingsRepo, hub, activity, log)
	t.Cleanup(dispatcher.Wait)

	convs := service.NewConversationService(convRepo, msgRepo, repository.NewDeliveryRepository(db), settingsRepo, userRepo, access, dispatcher, nil, log)
	messages := service.NewMessageService(convRepo, msgRepo, repository.NewReactionRepository(db), userRepo, access, dispatcher, nil, nil, log)
	settings := service.NewSettingsService(settingsRepo, userRepo, access)

	jwt := auth.NewJWTManager("test-secret", time.Hour)
	verifier := auth.NewVerifier(jwt, rdb)
	limiter := ratelimit.NewRedisLimiter(rdb, "messages", sendLimit, time.Minute)

	router := gin.New()
	Routes{
		Chat:        NewChatHandler(convs, messages, hub),
		Settings:    NewSettingsHandler(settings),
		WS:          NewWSHandler(hub, convs, messages, verifier, limiter, activity, []string{"*"}, log),
		Verifier:    verifier,
		Activity:    activity,
		SendLimiter: limiter,
		Log:         log,
	}.Register(router)

	return &testServer{router: router, db: db, mr: mr, jwt: jwt, hub: hub, convs: convs}
}

func (s *testServer) user(t *testing.T, name string) (*model.User, string) {
	t.Helper()
	u := testutil.CreateUser(t, s.db, name)
	token, err := s.jwt.GenerateToken(u.ID, u.Email, u.Name)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) direct(t *testing.T, a, b *model.User) uuid.UUID {
	t.Helper()
	resp, err := s.convs.GetOrCreateDirect(t.Context(), a.ID, b.ID)
	require.NoError(t, err)
	return resp.Conversation.ID
}

// do performs a request and decodes the JSON response into out when given.
func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}
