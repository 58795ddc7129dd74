package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/auth-service/internal/cache"
	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/repositories"
	"github.com/SAP-F-2025/auth-service/internal/repositories/memory"
	"github.com/SAP-F-2025/auth-service/internal/repositories/redisstore"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	user         repositories.UserRepository
	refreshToken repositories.RefreshTokenRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB           *gorm.DB
	RedisClient  *redis.Client
	UserCacheTTL time.Duration
	AutoMigrate  bool
}

// NewPostgreSQLRepository wires the user store and picks a refresh token
// store: redis when a client is configured, in-process otherwise.
func NewPostgreSQLRepository(config RepositoryConfig) *PostgreSQLRepository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
	}

	repo.user = NewUserPostgreSQL(config.DB, cacheManager, config.UserCacheTTL)

	if config.RedisClient != nil {
		repo.refreshToken = redisstore.NewRefreshTokenRedis(config.RedisClient)
	} else {
		slog.Warn("Redis not configured, refresh tokens are tracked in process memory")
		repo.refreshToken = memory.NewRefreshTokenMemory()
	}

	return repo
}

func (r *PostgreSQLRepository) User() repositories.UserRepository {
	return r.user
}

func (r *PostgreSQLRepository) RefreshToken() repositories.RefreshTokenRepository {
	return r.refreshToken
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements repositories.RepositoryManager
type RepositoryManager struct {
	repo        *PostgreSQLRepository
	autoMigrate bool
}

func NewRepositoryManager(config RepositoryConfig) *RepositoryManager {
	return &RepositoryManager{
		repo:        NewPostgreSQLRepository(config),
		autoMigrate: config.AutoMigrate,
	}
}

// Initialize migrates the users table when auto migration is enabled
func (rm *RepositoryManager) Initialize(ctx context.Context) error {
	if !rm.autoMigrate {
		return nil
	}

	if err := rm.repo.db.WithContext(ctx).AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}

	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	return rm.repo.Close()
}
