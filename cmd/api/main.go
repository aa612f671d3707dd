package main

import (
	"context"
	"log"

	goredis "github.com/redis/go-redis/v9"

	"backoffice-chat/config"
	"backoffice-chat/internal/handler"
	"backoffice-chat/internal/identity"
	"backoffice-chat/internal/mention"
	"backoffice-chat/internal/ratelimit"
	"backoffice-chat/internal/repository"
	"backoffice-chat/internal/server"
	"backoffice-chat/internal/services"
	"backoffice-chat/pkg/database"
	"backoffice-chat/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(l)
	defer l.Logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		l.Errorf("Failed to connect to database: %v", err)
		return
	}
	if err := database.Migrate(db); err != nil {
		l.Errorf("Failed to apply migrations: %v", err)
		return
	}

	store := repository.NewStore(db)

	limiterConfig := ratelimit.Config{
		ActorLimit:         cfg.RateLimit.ActorLimit,
		ActorWindow:        cfg.RateLimit.ActorWindow,
		ConversationLimit:  cfg.RateLimit.ConversationLimit,
		ConversationWindow: cfg.RateLimit.ConversationWindow,
	}
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(limiterConfig)
	if cfg.Redis.Enabled {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			l.Errorf("Failed to connect to redis: %v", err)
			return
		}
		limiter = ratelimit.NewRedisLimiter(redisClient, limiterConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	roster := mention.NewRoster(store.Directory(), cfg.Roster.RefreshInterval, l)
	roster.Start(ctx)

	audit := services.NewLogAuditSink(l)
	defer audit.Close()

	hub := server.NewHub(l)
	go hub.Run()
	defer hub.Stop()

	chatService := services.NewChatService(store, limiter, roster, hub, audit, l, cfg.Database.Timeout)
	pinService := services.NewPinService(store, audit, l, cfg.Database.Timeout)

	resolver := identity.NewResolver(cfg.Auth.JWTSecret)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Conversation: handler.NewConversationHandler(chatService),
		Message:      handler.NewMessageHandler(chatService),
		Pin:          handler.NewPinHandler(pinService),
		WebSocket:    server.NewHandler(resolver, hub, chatService, l),
	}, resolver)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %v", err)
	}
}
