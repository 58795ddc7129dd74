package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/auth-service/internal/events"
	"github.com/SAP-F-2025/auth-service/internal/repositories"
	"github.com/SAP-F-2025/auth-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Token TokenConfig

	// Password hashing
	BcryptCost int

	// RefreshTokenRotation makes refresh tokens single use and revocable
	RefreshTokenRotation bool

	// StoreTimeout bounds each individual store call
	StoreTimeout time.Duration
	// DefaultTimeout bounds whole operations started outside a request, such as bootstrap
	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	tokenService   TokenService
	authService    AuthService
	adminService   AdminService
	profileService ProfileService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(
	repo repositories.Repository,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
	config ServiceManagerConfig,
) ServiceManager {
	return &serviceManager{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}

	if err := sm.initializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() error {
	tokenService, err := NewTokenService(sm.config.Token)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	sm.tokenService = tokenService
	sm.logger.Info("Token service initialized")

	authService, err := NewAuthService(sm.repo, sm.tokenService, sm.publisher, sm.logger, sm.validator, AuthServiceConfig{
		BcryptCost:           sm.config.BcryptCost,
		StoreTimeout:         sm.config.StoreTimeout,
		RefreshTokenRotation: sm.config.RefreshTokenRotation,
	})
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	sm.authService = authService
	sm.logger.Info("Auth service initialized")

	sm.adminService = NewAdminService(sm.repo, sm.publisher, sm.logger, AdminServiceConfig{
		BcryptCost:   sm.config.BcryptCost,
		StoreTimeout: sm.config.StoreTimeout,
	})
	sm.logger.Info("Admin service initialized")

	sm.profileService = NewProfileService(sm.repo, sm.logger, sm.validator, sm.config.StoreTimeout)
	sm.logger.Info("Profile service initialized")

	return nil
}

// Service getters
func (sm *serviceManager) Token() TokenService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.tokenService
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.authService
}

func (sm *serviceManager) Admin() AdminService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.adminService
}

func (sm *serviceManager) Profile() ProfileService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.profileService
}

func (sm *serviceManager) Repository() repositories.Repository {
	return sm.repo
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	ctx, cancel := context.WithTimeout(ctx, sm.config.StoreTimeout)
	defer cancel()

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	var errs []error
	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
			errs = append(errs, err)
		}
	}

	if repoManager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
			errs = append(errs, err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return errors.Join(errs...)
}

// ===== UTILITY METHODS =====

// WithTimeout creates a context with the default timeout
func (sm *serviceManager) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sm.config.DefaultTimeout)
}

// ===== CONFIGURATION VALIDATION =====

// Validate validates the service manager configuration and fills zero values with defaults
func (config *ServiceManagerConfig) Validate() error {
	var problems []string

	if err := config.Token.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.BcryptCost < bcrypt.MinCost || config.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Sprintf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	if config.StoreTimeout < 0 || config.DefaultTimeout < 0 {
		problems = append(problems, "timeouts cannot be negative")
	}
	if config.StoreTimeout == 0 {
		config.StoreTimeout = 5 * time.Second
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = 30 * time.Second
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %v", problems)
	}

	return nil
}
