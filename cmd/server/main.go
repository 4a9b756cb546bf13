package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/config"
	"github.com/nmduc/chatterbox/internal/handler"
	"github.com/nmduc/chatterbox/internal/middleware"
	"github.com/nmduc/chatterbox/internal/model"
	"github.com/nmduc/chatterbox/internal/repository"
	"github.com/nmduc/chatterbox/internal/service"
	"github.com/nmduc/chatterbox/internal/ws"
	"github.com/nmduc/chatterbox/migrations"
	"github.com/nmduc/chatterbox/pkg/notification"
	"github.com/nmduc/chatterbox/pkg/storage"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// @title           Chatterbox API
// @version         1.0
// @description     Minimal real-time chat API: name-based login, one-on-one and group conversations, live delivery and presence over WebSocket.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting Chatterbox API Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		// Fallback to AutoMigrate if migration files fail
		if err := db.AutoMigrate(
			&model.User{},
			&model.Conversation{},
			&model.ConversationMember{},
			&model.Message{},
			&model.UserDevice{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis (chat list cache) ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// ==================== Initialize Layers ====================
	// Repositories
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	chatListCache := repository.NewChatListCache(rdb, cfg.Cache.ChatListTTL)

	// Services
	chatService := service.NewChatService(userRepo, convRepo, msgRepo, chatListCache)

	// WebSocket Hub: when a tracked connection closes, the user's offline
	// status is persisted best-effort after the broadcast has gone out.
	hub := ws.NewHub(func(userID uuid.UUID) {
		if err := chatService.SetOffline(userID); err != nil {
			log.Printf("⚠️  Failed to persist offline status for %s: %v", userID, err)
		}
	})

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// FCM push (optional)
	notifier, err := notification.NewNotificationService(cfg.FCM.CredentialsFile, deviceRepo)
	if err != nil {
		log.Printf("⚠️  FCM not available: %v (push disabled)", err)
	}

	// MinIO Storage (optional)
	minioStorage, err := storage.NewMinIO(storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		PublicURL: cfg.MinIO.PublicURL,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		log.Printf("⚠️  MinIO not available: %v (avatar upload disabled)", err)
	}
	if minioStorage != nil {
		log.Println("✅ Connected to MinIO")
	}

	// Handlers
	chatHandler := handler.NewChatHandler(chatService, hub, notifier)
	wsHandler := handler.NewWSHandler(hub)
	deviceHandler := handler.NewDeviceHandler(deviceRepo)
	uploadHandler := handler.NewUploadHandler(minioStorage, userRepo)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger: serve swagger.json at /docs/swagger.json to avoid conflict
	// with the /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "chatterbox-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api")
	{
		api.POST("/add-user", chatHandler.AddUser)
		api.GET("/chat-list/:userId", chatHandler.GetChatList)
		api.GET("/messages/:conversationId", chatHandler.GetMessages)
		api.POST("/send-message", chatHandler.SendMessage)
		api.POST("/devices", deviceHandler.RegisterDevice)
		api.POST("/upload-avatar", uploadHandler.UploadAvatar)
	}

	// WebSocket endpoint (unauthenticated, clients announce with user-online)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 Chatterbox API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	hubCancel()
	log.Println("✅ Server exited gracefully")
}
