package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/auth-service/internal/config"
	"github.com/SAP-F-2025/auth-service/internal/events"
	"github.com/SAP-F-2025/auth-service/internal/handlers"
	"github.com/SAP-F-2025/auth-service/internal/repositories"
	"github.com/SAP-F-2025/auth-service/internal/repositories/memory"
	"github.com/SAP-F-2025/auth-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/auth-service/internal/repositories/redisstore"
	"github.com/SAP-F-2025/auth-service/internal/services"
	"github.com/SAP-F-2025/auth-service/internal/utils"
	"github.com/SAP-F-2025/auth-service/internal/validator"
	"github.com/SAP-F-2025/auth-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis: %v", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	var repoManager repositories.RepositoryManager
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory credential store, data is lost on restart")
		var refreshStore repositories.RefreshTokenRepository
		if redisClient != nil {
			refreshStore = redisstore.NewRefreshTokenRedis(redisClient)
		}
		repoManager = memory.NewMemoryRepository(refreshStore)
	default:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		repoManager = postgres.NewRepositoryManager(postgres.RepositoryConfig{
			DB:           db,
			RedisClient:  redisClient,
			UserCacheTTL: cfg.UserCacheTTL,
			AutoMigrate:  cfg.AutoMigrate,
		})
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()

	if err := repoManager.Initialize(initCtx); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Initialize event publisher
	var publisher events.EventPublisher
	if len(cfg.Events.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaEventPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize Kafka publisher: %v", err)
		}
		publisher = kafkaPublisher
	} else {
		inProcess, _ := events.NewInProcessEventPublisher(cfg.Events.Topic, slogLogger)
		publisher = inProcess
	}

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(repoManager.GetRepository(), publisher, slogLogger, validator, services.ServiceManagerConfig{
		Token: services.TokenConfig{
			AccessSecret:     cfg.JWT.AccessSecret,
			AccessExpiresIn:  cfg.JWT.AccessExpiresIn,
			RefreshSecret:    cfg.JWT.RefreshSecret,
			RefreshExpiresIn: cfg.JWT.RefreshExpiresIn,
			Leeway:           cfg.JWT.Leeway,
		},
		BcryptCost:           cfg.Security.BcryptCost,
		RefreshTokenRotation: cfg.JWT.RefreshTokenRotation,
		StoreTimeout:         cfg.StoreTimeout,
	})
	if err := serviceManager.Initialize(initCtx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Bootstrap the first admin account
	adminCtx, cancelAdmin := serviceManager.WithTimeout(context.Background())
	err = serviceManager.Admin().EnsureAdmin(adminCtx, cfg.AdminEmail, cfg.AdminPassword)
	cancelAdmin()
	if err != nil {
		log.Fatalf("Failed to bootstrap admin account: %v", err)
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.CORSAllowedOrigins)
	handlers.NewHandlerManager(serviceManager, validator, logger).SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	// The postgres manager owns the redis client; the memory store does not.
	if _, ok := repoManager.(*postgres.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			log.Printf("Failed to close repositories: %v", err)
		}
	} else if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
