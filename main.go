package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"enclave-chat/internal/auth"
	"enclave-chat/internal/config"
	"enclave-chat/internal/db"
	"enclave-chat/internal/handlers"
	"enclave-chat/internal/middleware"
	"enclave-chat/internal/observability"
	"enclave-chat/internal/rabbitmq"
	"enclave-chat/internal/ratelimit"
	"enclave-chat/internal/repositories"
	"enclave-chat/internal/sweeper"
	"enclave-chat/internal/telemetry"
	"enclave-chat/internal/ws"
)

const serviceName = "enclave-chat"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s", rabbitmq.Mode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit.chat", serviceName, cfg.Environment)

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb, cfg.LoginMaxFailures, cfg.LoginWindow)
		log.Printf("login limiter mode=redis addr=%s", cfg.RedisAddr)
	} else {
		limiter = ratelimit.NewMemory(cfg.LoginMaxFailures, cfg.LoginWindow)
		log.Printf("login limiter mode=memory")
	}

	userRepo := repositories.NewUserRepo(database)
	tokenRepo := repositories.NewTokenRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	credentials := auth.NewCredentials(userRepo, tokenRepo)

	hub := ws.NewHub()
	relay := ws.NewRelay(hub, messageRepo, chatRepo)
	wsHandler := ws.NewHandler(hub, relay, chatRepo, sessions)

	secureCookies := cfg.Environment == "production"

	authHandler := handlers.NewAuthHandler(credentials, sessions, userRepo, limiter, audit, secureCookies)
	userHandler := handlers.NewUserHandler(userRepo)
	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, relay, audit, cfg.HistoryLimit)
	adminHandler := handlers.NewAdminHandler(credentials, tokenRepo, userRepo, audit)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	sessionRequired := middleware.SessionMiddleware(sessions, secureCookies)
	adminRequired := middleware.AdminMiddleware(sessions, secureCookies)

	router.POST("/auth/login", authHandler.Login)
	router.POST("/auth/signup", authHandler.Signup)
	router.POST("/auth/logout", authHandler.Logout)

	router.GET("/users", sessionRequired, userHandler.ListUsers)

	router.GET("/chats", sessionRequired, chatHandler.ListChats)
	router.POST("/chats", sessionRequired, chatHandler.CreateChat)
	router.DELETE("/chats/:chat_id", sessionRequired, chatHandler.DeleteChat)
	router.GET("/chats/:chat_id/messages", sessionRequired, chatHandler.GetChatMessages)
	router.POST("/chats/:chat_id/messages", sessionRequired, chatHandler.PostChatMessage)

	router.POST("/admin/tokens", adminRequired, adminHandler.IssueToken)
	router.GET("/admin/tokens", adminRequired, adminHandler.ListTokens)
	router.DELETE("/admin/tokens/:id", adminRequired, adminHandler.RevokeToken)
	router.GET("/admin/users", adminRequired, adminHandler.ListUsers)

	router.GET("/ws", wsHandler.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	janitor := sweeper.New(messageRepo, cfg.SweepInterval, cfg.SweepLag)
	go janitor.Run(ctx)

	log.Printf("listening on %s environment=%s", cfg.Addr, cfg.Environment)
	if err := router.Run(cfg.Addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
