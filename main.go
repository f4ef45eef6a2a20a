package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"vidchat-service/internal/auth"
	"vidchat-service/internal/changefeed"
	"vidchat-service/internal/config"
	"vidchat-service/internal/db"
	grpcserver "vidchat-service/internal/grpc"
	"vidchat-service/internal/handlers"
	"vidchat-service/internal/middleware"
	"vidchat-service/internal/observability"
	"vidchat-service/internal/rabbitmq"
	"vidchat-service/internal/realtime"
	"vidchat-service/internal/relay"
	"vidchat-service/internal/repositories"
	"vidchat-service/internal/storage"
	"vidchat-service/internal/telemetry"
	"vidchat-service/internal/upload"
	"vidchat-service/internal/ws"
)

const (
	shutdownTimeout     = 10 * time.Second
	changefeedClaimTTL  = time.Minute
	healthCheckInterval = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}

	database, err := db.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s", rabbitmq.Mode(publisher))
	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	var (
		broker   realtime.Broker
		presence *realtime.Presence
		claimer  changefeed.Claimer
	)
	switch cfg.RealtimeBroker {
	case config.BrokerMemory:
		broker = realtime.NewMemoryBroker(0)
		presence = realtime.NewPresence(realtime.NewMemoryPresenceStore(), broker, cfg.PresenceHeartbeat)
	default:
		broker = realtime.NewRedisBroker(redisClient, 0)
		presence = realtime.NewPresence(realtime.NewRedisPresenceStore(redisClient, 3*cfg.PresenceHeartbeat), broker, cfg.PresenceHeartbeat)
		claimer = changefeed.NewRedisClaimer(redisClient, changefeedClaimTTL)
	}
	log.Printf("realtime broker=%s", cfg.RealtimeBroker)

	listener := changefeed.NewListener(cfg.DatabaseDSN, db.NotifyChannel, broker, claimer)
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("changefeed stopped: %v", err)
		}
	}()

	store, err := storage.NewLocalStore(cfg.StorageRoot, cfg.StorageBaseURL, storage.BucketVideos, storage.BucketThumbnails)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}

	userRepo := repositories.NewUserRepo(database)
	profileRepo := repositories.NewProfileRepo(database)
	channelRepo := repositories.NewChannelRepo(database)
	videoRepo := repositories.NewVideoRepo(database)
	engagementRepo := repositories.NewEngagementRepo(database)
	commentRepo := repositories.NewCommentRepo(database)
	chatRoomRepo := repositories.NewChatRoomRepo(database)
	chatMessageRepo := repositories.NewChatMessageRepo(database)
	liveStreamRepo := repositories.NewLiveStreamRepo(database)

	authService := auth.NewService(userRepo, profileRepo, channelRepo, auth.NewRedisTokenStore(redisClient), publisher,
		cfg.JWTSecret, cfg.TokenTTL, cfg.ResetTTL)
	rl := relay.New(broker, presence, profileRepo, chatMessageRepo, relay.WithHistoryLimit(cfg.HistoryLimit))
	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(authService, auditEmitter)
	profileHandler := handlers.NewProfileHandler(profileRepo)
	channelHandler := handlers.NewChannelHandler(channelRepo, videoRepo)
	videoHandler := handlers.NewVideoHandler(videoRepo, engagementRepo, channelRepo, store,
		upload.NewPipeline(store, videoRepo), auditEmitter, cfg.MaxUploadBytes)
	commentHandler := handlers.NewCommentHandler(commentRepo)
	libraryHandler := handlers.NewLibraryHandler(videoRepo, engagementRepo)
	chatRoomHandler := handlers.NewChatRoomHandler(chatRoomRepo, chatMessageRepo)
	liveStreamHandler := handlers.NewLiveStreamHandler(liveStreamRepo, chatMessageRepo)
	realtimeWS := ws.NewRealtimeHandler(hub, rl, chatRoomRepo, liveStreamRepo, authService)

	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static("/storage", store.Root())
	handlers.RegisterDebugRoutes(router, auditEmitter, hub, cfg.DebugRoutes)

	router.POST("/auth/signup", authHandler.SignUp)
	router.POST("/auth/signin", authHandler.SignIn)
	router.POST("/auth/password-reset", authHandler.RequestPasswordReset)
	router.POST("/auth/password-reset/confirm", authHandler.ResetPassword)

	router.GET("/ws/chat-rooms/:room_id", realtimeWS.HandleChatRoom)
	router.GET("/ws/live-streams/:stream_id", realtimeWS.HandleLiveStream)

	api := router.Group("/", middleware.AuthMiddleware(authService))
	api.POST("/auth/signout", authHandler.SignOut)

	api.GET("/profiles/:user_id", profileHandler.GetProfile)
	api.PATCH("/profiles/me", profileHandler.UpdateProfile)

	api.GET("/channels/:channel_id", channelHandler.GetChannel)
	api.GET("/channels/:channel_id/videos", channelHandler.ListVideos)
	api.GET("/channels/:channel_id/subscription", channelHandler.SubscriptionStatus)
	api.POST("/channels/:channel_id/subscription", channelHandler.Subscribe)
	api.DELETE("/channels/:channel_id/subscription", channelHandler.Unsubscribe)

	api.GET("/videos/search", videoHandler.Search)
	api.GET("/videos/shorts", videoHandler.Shorts)
	api.POST("/videos", videoHandler.Upload)
	api.GET("/videos/:video_id", videoHandler.GetVideo)
	api.DELETE("/videos/:video_id", videoHandler.DeleteVideo)
	api.PUT("/videos/:video_id/reaction", videoHandler.SetReaction)
	api.POST("/videos/:video_id/watch", videoHandler.RecordWatch)
	api.GET("/videos/:video_id/comments", commentHandler.ListComments)
	api.POST("/videos/:video_id/comments", commentHandler.CreateComment)
	api.POST("/comments/:comment_id/like", commentHandler.ToggleLike)

	api.GET("/me/history", libraryHandler.History)
	api.GET("/me/liked", libraryHandler.Liked)
	api.GET("/me/subscriptions", libraryHandler.SubscriptionFeed)

	api.GET("/chat-rooms", chatRoomHandler.ListRooms)
	api.POST("/chat-rooms", chatRoomHandler.CreateRoom)
	api.GET("/chat-rooms/:room_id", chatRoomHandler.GetRoom)
	api.GET("/chat-rooms/:room_id/messages", chatRoomHandler.GetMessages)
	api.POST("/chat-rooms/:room_id/messages", chatRoomHandler.PostMessage)

	api.GET("/live-streams", liveStreamHandler.ListStreams)
	api.GET("/live-streams/:stream_id", liveStreamHandler.GetStream)
	api.GET("/live-streams/:stream_id/messages", liveStreamHandler.GetMessages)
	api.POST("/live-streams/:stream_id/messages", liveStreamHandler.PostMessage)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Device-ID"},
	}).Handler(router)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	monitor := grpcserver.NewHealthMonitor(healthCheckInterval, map[string]grpcserver.CheckFunc{
		"postgres": database.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	go monitor.Run(ctx)
	grpcServer := grpcserver.NewServer(monitor)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("failed to listen grpc: %v", err)
	}
	go func() {
		log.Printf("grpc health listening on :%s", cfg.GRPCPort)
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Printf("grpc server error: %v", err)
		}
	}()

	go func() {
		log.Printf("http listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	hub.CloseAll()
	grpcServer.GracefulStop()
	if err := broker.Close(); err != nil {
		log.Printf("broker close: %v", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("tracer shutdown: %v", err)
	}
}
