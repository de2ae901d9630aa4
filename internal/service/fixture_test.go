package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/internal/testutil"
	"github.com/quocanhngo/chatcore/pkg/cache"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sentEvent struct {
	UserID uuid.UUID
	Event  any
}

// recordingChannel keeps every personal-channel event for inspection.
type recordingChannel struct {
	mu     sync.Mutex
	events []sentEvent
}

func (c *recordingChannel) SendToUser(userID uuid.UUID, event any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, sentEvent{UserID: userID, Event: event})
}

func (c *recordingChannel) For(userID uuid.UUID) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []any
	for _, e := range c.events {
		if e.UserID == userID {
			out = append(out, e.Event)
		}
	}
	return out
}

type fakeURLs struct{}

func (fakeURLs) GetPublicURL(objectName string) string {
	return "https://media.test/" + objectName
}

type fakeObjects struct {
	mu      sync.Mutex
	deleted []string
}

func (o *fakeObjects) Delete(ctx context.Context, objectName string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleted = append(o.deleted, objectName)
	return nil
}

type fixture struct {
	db         *gorm.DB
	mr         *miniredis.Miniredis
	channel    *recordingChannel
	objects    *fakeObjects
	activity   *ActivityTracker
	access     *Access
	dispatcher *NotificationDispatcher
	convRepo   *repository.ConversationRepository
	msgRepo    *repository.MessageRepository
	delivery   *repository.DeliveryRepository
	settings   *repository.SettingsRepository
	users      *repository.UserRepository
	convs      *ConversationService
	messages   *MessageService
	prefs      *SettingsService
}

func newFixture(t *testing.T, log *zap.Logger, senders ...OutOfBandSender) *fixture {
	t.Helper()
	if log == nil {
		log = testutil.NewLogger()
	}

	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)

	f := &fixture{
		db:       db,
		mr:       mr,
		channel:  &recordingChannel{},
		objects:  &fakeObjects{},
		activity: NewActivityTracker(rdb, 5*time.Minute),
		convRepo: repository.NewConversationRepository(db),
		msgRepo:  repository.NewMessageRepository(db),
		delivery: repository.NewDeliveryRepository(db),
		settings: repository.NewSettingsRepository(db),
		users:    repository.NewUserRepository(db),
	}
	f.access = NewAccess(f.convRepo, cache.New(rdb, "chatcore", 5*time.Minute), log)
	f.dispatcher = NewNotificationDispatcher(f.convRepo, f.settings, f.channel, f.activity, log, senders...)
	f.convs = NewConversationService(f.convRepo, f.msgRepo, f.delivery, f.settings, f.users, f.access, f.dispatcher, fakeURLs{}, log)
	f.messages = NewMessageService(f.convRepo, f.msgRepo, repository.NewReactionRepository(db), f.users, f.access, f.dispatcher, fakeURLs{}, f.objects, log)
	f.prefs = NewSettingsService(f.settings, f.users, f.access)

	t.Cleanup(f.dispatcher.Wait)
	return f
}

func (f *fixture) user(t *testing.T, name string) *model.User {
	return testutil.CreateUser(t, f.db, name)
}

func (f *fixture) direct(t *testing.T, a, b *model.User) uuid.UUID {
	t.Helper()
	resp, err := f.convs.GetOrCreateDirect(t.Context(), a.ID, b.ID)
	require.NoError(t, err)
	return resp.Conversation.ID
}

func (f *fixture) send(t *testing.T, sender *model.User, conversationID uuid.UUID, content string) *model.MessageView {
	t.Helper()
	view, err := f.messages.Send(t.Context(), SendParams{
		SenderID:       sender.ID,
		ConversationID: conversationID,
		Content:        content,
	})
	require.NoError(t, err)
	return view
}
