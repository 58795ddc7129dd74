package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/auth-service/internal/events"
	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/repositories"
	"github.com/SAP-F-2025/auth-service/internal/validator"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type AdminServiceConfig struct {
	BcryptCost   int
	StoreTimeout time.Duration
}

type adminService struct {
	repo   repositories.Repository
	events events.EventPublisher
	logger *slog.Logger
	config AdminServiceConfig

	// serializes admin demotions within this process so two of them cannot both see a second admin
	mu sync.Mutex
}

func NewAdminService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	logger *slog.Logger,
	config AdminServiceConfig,
) AdminService {
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = 5 * time.Second
	}
	return &adminService{
		repo:   repo,
		events: publisher,
		logger: logger,
		config: config,
	}
}

func (s *adminService) ListUsers(ctx context.Context, filters UserListFilters) (*models.UserListResponse, error) {
	page, size := normalizePage(filters.Page, filters.Size)

	type listResult struct {
		users []*models.User
		total int64
	}
	result, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (listResult, error) {
		users, total, err := s.repo.User().List(ctx, repositories.UserFilters{
			Role:   filters.Role,
			Status: filters.Status,
			Limit:  size,
			Offset: (page - 1) * size,
		})
		return listResult{users: users, total: total}, err
	})
	if err != nil {
		return nil, storeError(err)
	}

	users := make([]*models.User, 0, len(result.users))
	for _, user := range result.users {
		users = append(users, sanitize(user))
	}

	return &models.UserListResponse{
		Users: users,
		Total: result.total,
		Page:  page,
		Size:  size,
	}, nil
}

func (s *adminService) UpdateUserRole(ctx context.Context, actorID, userID string, role models.UserRole) (*models.User, error) {
	if !role.IsValid() {
		return nil, NewValidationError(fmt.Errorf("invalid role %q", role))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return sanitize(user), nil
	}

	if user.Role == models.RoleAdmin && user.IsActive() {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	previous := user.Role
	user.Role = role
	if err := s.updateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User role changed",
		"user_id", user.ID,
		"actor_id", actorID,
		"previous_role", previous,
		"role", role)
	s.publish(ctx, events.UserRoleChanged, events.UserEvent{
		UserID:       user.ID,
		Role:         role,
		PreviousRole: previous,
		ActorID:      actorID,
	})

	return sanitize(user), nil
}

func (s *adminService) UpdateUserStatus(ctx context.Context, actorID, userID string, status models.UserStatus) (*models.User, error) {
	if !status.IsValid() {
		return nil, NewValidationError(fmt.Errorf("invalid status %q", status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == status {
		return sanitize(user), nil
	}

	if user.Role == models.RoleAdmin && user.IsActive() {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	previous := user.Status
	user.Status = status
	if err := s.updateUser(ctx, user); err != nil {
		return nil, err
	}

	if status != models.StatusActive {
		s.revokeSessions(ctx, user.ID)
	}

	s.logger.InfoContext(ctx, "User status changed",
		"user_id", user.ID,
		"actor_id", actorID,
		"previous_status", previous,
		"status", status)
	s.publish(ctx, events.UserStatusChanged, events.UserEvent{
		UserID:         user.ID,
		Status:         status,
		PreviousStatus: previous,
		ActorID:        actorID,
	})

	return sanitize(user), nil
}

func (s *adminService) DeleteUser(ctx context.Context, actorID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.Role == models.RoleAdmin && user.IsActive() {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}

	_, err = withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.User().Delete(ctx, user.ID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrNotFound
		}
		return storeError(err)
	}

	s.revokeSessions(ctx, user.ID)

	s.logger.InfoContext(ctx, "User deleted", "user_id", user.ID, "actor_id", actorID)
	s.publish(ctx, events.UserDeleted, events.UserEvent{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		ActorID: actorID,
	})
	return nil
}

func (s *adminService) GetSystemStats(ctx context.Context) (*models.SystemStats, error) {
	byRole, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (map[models.UserRole]int64, error) {
		return s.repo.User().CountByRole(ctx)
	})
	if err != nil {
		return nil, storeError(err)
	}

	byStatus, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (map[models.UserStatus]int64, error) {
		return s.repo.User().CountByStatus(ctx)
	})
	if err != nil {
		return nil, storeError(err)
	}

	stats := &models.SystemStats{
		ActiveUsers:    byStatus[models.StatusActive],
		SuspendedUsers: byStatus[models.StatusSuspended],
		ByRole:         make(map[models.UserRole]int64, len(models.AllRoles())),
	}
	for _, role := range models.AllRoles() {
		stats.ByRole[role] = byRole[role]
	}
	for _, count := range byStatus {
		stats.TotalUsers += count
	}

	return stats, nil
}

func (s *adminService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}

	admins, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (int64, error) {
		return s.repo.User().CountActiveByRole(ctx, models.RoleAdmin)
	})
	if err != nil {
		return storeError(err)
	}
	if admins > 0 {
		return nil
	}

	email = models.NormalizeEmail(email)
	existing, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (*models.User, error) {
		return s.repo.User().GetByEmail(ctx, email)
	})
	switch {
	case err == nil:
		existing.Role = models.RoleAdmin
		existing.Status = models.StatusActive
		if err := s.updateUser(ctx, existing); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "Promoted existing account to admin", "user_id", existing.ID)
		return nil
	case !repositories.IsNotFoundError(err):
		return storeError(err)
	}

	if !validator.ValidPassword(password) {
		return NewValidationError(fmt.Errorf("admin password must be at least %d characters and at most %d bytes",
			validator.MinPasswordLength, validator.MaxPasswordBytes))
	}

	admin := &models.User{
		ID:      uuid.NewString(),
		Email:   email,
		Role:    models.RoleAdmin,
		Status:  models.StatusActive,
		Profile: datatypes.NewJSONType(models.NewUserProfile("Admin", "")),
	}
	if err := admin.SetPassword(password, s.config.BcryptCost); err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	_, err = withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.User().Create(ctx, admin)
	})
	if err != nil {
		// another instance created it first
		if repositories.IsDuplicateError(err) {
			return nil
		}
		return storeError(err)
	}

	s.logger.InfoContext(ctx, "Bootstrap admin created", "user_id", admin.ID)
	s.publish(ctx, events.UserRegistered, events.UserEvent{
		UserID: admin.ID,
		Email:  admin.Email,
		Role:   admin.Role,
		Status: admin.Status,
		Reason: "bootstrap",
	})
	return nil
}

func (s *adminService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (*models.User, error) {
		return s.repo.User().GetByID(ctx, userID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, storeError(err)
	}
	return user, nil
}

func (s *adminService) updateUser(ctx context.Context, user *models.User) error {
	_, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.User().Update(ctx, user)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrNotFound
		}
		return storeError(err)
	}
	return nil
}

// ensureAnotherAdmin fails when the target is the only active admin left.
func (s *adminService) ensureAnotherAdmin(ctx context.Context) error {
	count, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (int64, error) {
		return s.repo.User().CountActiveByRole(ctx, models.RoleAdmin)
	})
	if err != nil {
		return storeError(err)
	}
	if count <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *adminService) revokeSessions(ctx context.Context, userID string) {
	_, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.RefreshToken().RevokeAllForUser(ctx, userID)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to revoke refresh tokens", "user_id", userID, "error", err)
	}
}

func (s *adminService) publish(ctx context.Context, eventType string, data events.UserEvent) {
	publishEvent(ctx, s.events, s.logger, eventType, data)
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}
