package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-sync/internal/api"
	"chat-sync/internal/config"
	"chat-sync/internal/engine"
	"chat-sync/internal/gateway"
	"chat-sync/internal/observability"
	"chat-sync/internal/realtime"
	"chat-sync/internal/store"
	"chat-sync/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, "chat-sync", cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() { _ = shutdownTracing(ctx) }()

	publisher := observability.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	observability.SetPublisher(publisher)
	defer publisher.Close()

	chatAPI := api.NewClient(cfg.APIBaseURL, cfg.Token)

	channel, err := realtime.Dial(cfg.SocketURL, cfg.Token)
	if err != nil {
		log.Fatalf("failed to connect to realtime channel: %v", err)
	}

	st := store.New(cfg.UserID)
	session := engine.NewSession(st, chatAPI, channel)
	defer session.Close()

	if err := session.Loader().LoadConversations(ctx); err != nil {
		log.Printf("initial conversation load failed: %v", err)
	}

	ingestor := engine.NewIngestor(st)
	go ingestor.Run(ctx, channel.Events())

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("chat-sync"))
	router.Use(observability.HTTPMetricsMiddleware())

	h := gateway.NewHandler(session)

	router.GET("/conversations", h.ListConversations)
	router.POST("/conversations/refresh", h.RefreshConversations)
	router.POST("/conversations/direct", h.StartDirectChat)
	router.POST("/conversations/group", h.StartGroupChat)
	router.POST("/conversations/:conversation_id/open", h.OpenConversation)
	router.POST("/conversations/:conversation_id/close", h.CloseConversation)
	router.GET("/conversations/:conversation_id/messages", h.GetMessages)
	router.POST("/conversations/:conversation_id/messages", h.PostMessage)
	router.DELETE("/conversations/:conversation_id/messages/:message_id", h.DeleteMessage)
	router.POST("/messages/:message_id/reactions", h.React)
	router.POST("/conversations/:conversation_id/read", h.MarkRead)
	router.GET("/conversations/:conversation_id/draft", h.GetDraft)
	router.PUT("/conversations/:conversation_id/draft", h.PutDraft)
	router.POST("/conversations/:conversation_id/reply", h.SetReply)
	router.DELETE("/reply", h.ClearReply)
	router.POST("/conversations/:conversation_id/typing", h.Typing)
	router.GET("/conversations/:conversation_id/search", h.Search)
	router.GET("/unread", h.Unread)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if err := router.Run(":" + cfg.GatewayPort); err != nil {
		log.Fatalf("gateway error: %v", err)
	}
}
