package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/chatcore/internal/config"
	"github.com/quocanhngo/chatcore/internal/handler"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/internal/service"
	"github.com/quocanhngo/chatcore/internal/ws"
	"github.com/quocanhngo/chatcore/migrations"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"github.com/quocanhngo/chatcore/pkg/cache"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/quocanhngo/chatcore/pkg/mailer"
	"github.com/quocanhngo/chatcore/pkg/notification"
	"github.com/quocanhngo/chatcore/pkg/ratelimit"
	"github.com/quocanhngo/chatcore/pkg/storage"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           chatcore API
// @version         1.0
// @description     Conversations, messages, delivery/read state and real-time fan-out over WebSocket with Redis Pub/Sub.

// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting chatcore", zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ==================== Database ====================
	db, err := openDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()))

	// ==================== Collaborators ====================
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	var (
		urls    service.AttachmentURLs
		objects service.ObjectRemover
	)
	minioStorage, err := storage.NewMinIO(ctx, storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		PublicURL: cfg.MinIO.PublicURL,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	}, log)
	if err != nil {
		log.Warn("minio not available, attachment urls and cleanup disabled", zap.Error(err))
	} else {
		urls, objects = minioStorage, minioStorage
		log.Info("connected to minio", zap.String("bucket", cfg.MinIO.Bucket))
	}

	var senders []service.OutOfBandSender
	if cfg.SMTP.Host != "" {
		mailClient := mailer.New(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, log)
		senders = append(senders, service.NewEmailSender(userRepo, mailClient, cfg.Notification.AppURL))
		log.Info("smtp configured", zap.String("host", cfg.SMTP.Host), zap.String("port", cfg.SMTP.Port))
	}
	if push := notification.NewPushService(ctx, cfg.Firebase.CredentialsFile, userRepo, log); push != nil {
		senders = append(senders, service.NewPushSender(push))
	}

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	verifier := auth.NewVerifier(jwtManager, rdb)

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb, log)

	activity := service.NewActivityTracker(rdb, cfg.Notification.ActivityWindow)
	access := service.NewAccess(convRepo, cache.New(rdb, "chatcore", cfg.Cache.TTL), log)
	dispatcher := service.NewNotificationDispatcher(convRepo, settingsRepo, hub, activity, log, senders...)

	convService := service.NewConversationService(convRepo, msgRepo, repository.NewDeliveryRepository(db), settingsRepo, userRepo, access, dispatcher, urls, log)
	msgService := service.NewMessageService(convRepo, msgRepo, repository.NewReactionRepository(db), userRepo, access, dispatcher, urls, objects, log)
	settingsService := service.NewSettingsService(settingsRepo, userRepo, access)

	sendLimiter := ratelimit.NewRedisLimiter(rdb, "messages", cfg.RateLimit.Messages, cfg.RateLimit.Window)

	// ==================== Gin Router ====================
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	handler.Routes{
		Chat:        handler.NewChatHandler(convService, msgService, hub),
		Settings:    handler.NewSettingsHandler(settingsService),
		WS:          handler.NewWSHandler(hub, convService, msgService, verifier, sendLimiter, activity, cfg.CORS.Origins, log),
		Verifier:    verifier,
		Activity:    activity,
		SendLimiter: sendLimiter,
		Log:         log,
	}.Register(router)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		log.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("docs", "/swagger/index.html"),
			zap.String("ws", "/ws/conversations/:id?token=<jwt>"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		// Give ongoing requests 5 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
	}

	dispatcher.Wait()
	if err := rdb.Close(); err != nil {
		log.Warn("closing redis", zap.Error(err))
	}
	log.Info("server exited gracefully")
}

// openDatabase connects to the configured driver and brings the schema up
// to date: golang-migrate for postgres, with AutoMigrate as the fallback
// and as the only option for sqlite.
func openDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.App.IsProduction() {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Warn)
	}
	gormCfg := &gorm.Config{Logger: gormLogger}

	if cfg.DB.Driver == "sqlite" {
		db, err := gorm.Open(sqlite.Open(cfg.DB.SQLitePath), gormCfg)
		if err != nil {
			return nil, err
		}
		log.Info("connected to sqlite", zap.String("path", cfg.DB.SQLitePath))
		return db, db.AutoMigrate(model.All()...)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), gormCfg)
	if err != nil {
		return nil, err
	}
	log.Info("connected to postgres", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Name))

	if err := migrations.Run(cfg.DB.URL(), log); err != nil {
		log.Warn("migration failed, falling back to gorm automigrate", zap.Error(err))
		if err := db.AutoMigrate(model.All()...); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
