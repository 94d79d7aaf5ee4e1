package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"tutorhub/internal/config"
	"tutorhub/internal/db"
	"tutorhub/internal/handlers"
	"tutorhub/internal/identity"
	"tutorhub/internal/middleware"
	"tutorhub/internal/observability"
	"tutorhub/internal/rabbitmq"
	"tutorhub/internal/realtime"
	"tutorhub/internal/repositories"
	"tutorhub/internal/telemetry"
	"tutorhub/internal/ws"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.Server.Debug {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}

	database, err := db.Connect(cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer database.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, realtime fan-out stays node-local", zap.Error(err))
			redisClient = nil
		}
		cancel()
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "tutorhub.audit", "tutorhub", cfg.Server.Environment, logger)

	threadRepo := repositories.NewThreadRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)
	lessonRepo := repositories.NewLessonRepo(database)

	var roleCache identity.RoleCache
	if redisClient != nil {
		roleCache = identity.NewRedisRoleCache(redisClient, time.Duration(cfg.Auth.RoleCacheTTLSeconds)*time.Second)
	}
	resolver := identity.NewResolver(identity.NewSQLProfileStore(database), roleCache, 2*time.Second, logger)

	hub := ws.NewHub(logger)

	const changeChannel = "tutorhub:changes"
	var bus realtime.Bus
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if redisClient != nil {
		bus = realtime.NewRedisBus(redisClient, changeChannel)
		bridge := realtime.NewBridge(redisClient, changeChannel, hub, logger)
		go bridge.Run(ctx)
	} else {
		bus = realtime.NewLocalBus(hub)
	}

	threadHandler := handlers.NewThreadHandler(threadRepo, messageRepo, reactionRepo, bus, audit, logger)
	messageHandler := handlers.NewMessageHandler(threadRepo, messageRepo, reactionRepo, bus, audit, logger)
	billingHandler := handlers.NewBillingHandler(lessonRepo, bus, audit, logger)
	subscribeHandler := ws.NewSubscribeHandler(hub, threadRepo, logger)

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("tutorhub"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.Auth(cfg.Auth.JWTSecret, resolver)
	api := router.Group("/", auth)

	api.GET("/threads", threadHandler.ListThreads)
	api.POST("/threads", threadHandler.CreateThread)
	api.GET("/threads/unread-count", threadHandler.UnreadCount)
	api.GET("/threads/:thread_id", threadHandler.GetThread)
	api.POST("/threads/:thread_id/read", threadHandler.MarkRead)
	api.POST("/threads/:thread_id/archive", threadHandler.ArchiveThread)
	api.DELETE("/threads/:thread_id", threadHandler.DeleteThread)
	api.POST("/threads/bulk-archive", threadHandler.BulkArchiveThreads)
	api.POST("/threads/bulk-delete", threadHandler.BulkDeleteThreads)

	api.POST("/threads/:thread_id/messages", messageHandler.PostMessage)
	api.DELETE("/threads/:thread_id/messages/:message_id", messageHandler.DeleteMessage)
	api.POST("/messages/:message_id/reactions", messageHandler.ToggleReaction)
	api.POST("/messages/bulk-delete", messageHandler.BulkDeleteMessages)

	api.GET("/billing/summary", billingHandler.GetSummary)
	api.POST("/billing/invoices", billingHandler.GenerateInvoice)

	api.GET("/ws", subscribeHandler.Handle)

	logger.Info("tutorhub listening", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
