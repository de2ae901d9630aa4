package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/config"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/internal/service"
	"github.com/quocanhngo/chatcore/internal/ws"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"github.com/quocanhngo/chatcore/pkg/cache"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const seedPassword = "password123"

func main() {
	// Load config
	cfg := config.Load()

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	ctx := context.Background()

	// Force DB logging off to avoid noise
	dialector := postgres.Open(cfg.DB.DSN())
	if cfg.DB.Driver == "sqlite" {
		dialector = sqlite.Open(cfg.DB.SQLitePath)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Fatal("failed to migrate", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()

	users, err := seedUsers(ctx, repository.NewUserRepository(db), log)
	if err != nil {
		log.Fatal("failed to seed users", zap.Error(err))
	}

	// Real-time delivery goes nowhere; only persistence matters here.
	convRepo := repository.NewConversationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	userRepo := repository.NewUserRepository(db)
	access := service.NewAccess(convRepo, cache.New(rdb, "chatcore", cfg.Cache.TTL), log)
	dispatcher := service.NewNotificationDispatcher(convRepo, settingsRepo, ws.NewHub(nil, log),
		service.NewActivityTracker(rdb, cfg.Notification.ActivityWindow), log)
	convs := service.NewConversationService(convRepo, repository.NewMessageRepository(db), repository.NewDeliveryRepository(db),
		settingsRepo, userRepo, access, dispatcher, nil, log)
	messages := service.NewMessageService(convRepo, repository.NewMessageRepository(db), repository.NewReactionRepository(db),
		userRepo, access, dispatcher, nil, nil, log)

	if err := seedConversations(ctx, convs, messages, users); err != nil {
		log.Fatal("failed to seed conversations", zap.Error(err))
	}
	dispatcher.Wait()

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	for _, u := range users {
		token, err := jwtManager.GenerateToken(u.ID, u.Email, u.Name)
		if err != nil {
			log.Fatal("failed to sign token", zap.Error(err))
		}
		fmt.Printf("%-14s %s\n", u.Name, token)
	}
	log.Info("seeding completed", zap.Int("users", len(users)))
}

// seedUsers creates user1..user5, reusing any that already exist.
func seedUsers(ctx context.Context, repo *repository.UserRepository, log *zap.Logger) ([]*model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, 5)
	for i := 1; i <= 5; i++ {
		email := fmt.Sprintf("user%d@chatcore.local", i)
		if existing, err := repo.FindByEmail(ctx, email); err == nil {
			users = append(users, existing)
			continue
		}

		user := &model.User{
			ID:                    uuid.New(),
			Name:                  fmt.Sprintf("User Number %d", i),
			Email:                 email,
			Password:              string(hashed),
			Avatar:                fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=user%d", i),
			IsNotificationEnabled: true,
		}
		if err := repo.Create(ctx, user); err != nil {
			return nil, err
		}
		log.Info("created user", zap.String("email", email), zap.String("password", seedPassword))
		users = append(users, user)
	}
	return users, nil
}

func seedConversations(ctx context.Context, convs *service.ConversationService, messages *service.MessageService, users []*model.User) error {
	admin := users[0]

	direct, err := convs.GetOrCreateDirect(ctx, admin.ID, users[1].ID)
	if err != nil {
		return err
	}
	if direct.IsNew {
		for i, line := range []string{"Hey, are you around?", "Yes! What's up?"} {
			sender := admin.ID
			if i%2 == 1 {
				sender = users[1].ID
			}
			if _, err := messages.Send(ctx, service.SendParams{
				SenderID:       sender,
				ConversationID: direct.Conversation.ID,
				Content:        line,
			}); err != nil {
				return err
			}
		}
	}

	inbox, err := convs.ListConversations(ctx, admin.ID, model.InboxRequest{Filter: model.InboxGroups, Page: 1})
	if err != nil {
		return err
	}
	if len(inbox.Conversations) > 0 {
		return nil
	}

	group, err := convs.CreateGroup(ctx, admin.ID, model.CreateGroupRequest{
		Name:           "General Chat",
		Description:    "Say hi",
		ParticipantIDs: []uuid.UUID{users[1].ID, users[2].ID, users[3].ID},
	})
	if err != nil {
		return err
	}
	_, err = messages.Send(ctx, service.SendParams{
		SenderID:       admin.ID,
		ConversationID: group.Conversation.ID,
		Content:        "Welcome everybody to ChatCore!",
	})
	return err
}
