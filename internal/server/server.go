package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"backoffice-chat/config"
	"backoffice-chat/internal/handler"
	"backoffice-chat/internal/identity"
	"backoffice-chat/internal/middleware"
	"backoffice-chat/internal/transport/httpdto"
	"backoffice-chat/pkg/database"
	"backoffice-chat/pkg/logger"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "production"
	TestMode    = "test"
)

type Handlers struct {
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Pin          *handler.PinHandler
	WebSocket    *Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.Server.Environment == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Server.Environment == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, resolver *identity.Resolver) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	// The gateway authenticates via query token inside the handler.
	s.engine.GET("/ws", handlers.WebSocket.Connect)

	auth := middleware.AuthMiddleware(resolver)

	conversations := s.engine.Group("/v1/conversations", auth)
	{
		conversations.POST("", handlers.Conversation.Create)
		conversations.GET("", handlers.Conversation.List)
		conversations.GET("/:id", handlers.Conversation.GetByID)
		conversations.DELETE("/:id", handlers.Conversation.Delete)
		conversations.POST("/:id/participants", handlers.Conversation.AddParticipant)
		conversations.DELETE("/:id/participants/:staffId", handlers.Conversation.RemoveParticipant)
		conversations.POST("/:id/messages", handlers.Message.Send)
		conversations.GET("/:id/messages", handlers.Message.List)
		conversations.POST("/:id/read", handlers.Message.MarkRead)
	}

	messages := s.engine.Group("/v1/messages", auth)
	{
		messages.PATCH("/:messageId", handlers.Message.Edit)
		messages.DELETE("/:messageId", handlers.Message.Delete)
	}

	pins := s.engine.Group("/v1/pins", auth)
	{
		pins.GET("", handlers.Pin.List)
		pins.POST("/:id/resolve", handlers.Pin.Resolve)
		pins.POST("/:id/reopen", handlers.Pin.Reopen)
		pins.GET("/:id/links", handlers.Pin.ListLinks)
		pins.POST("/:id/links", handlers.Pin.AddLink)
		pins.DELETE("/links/:linkId", handlers.Pin.RemoveLink)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.Server.Port)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
