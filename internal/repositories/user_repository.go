package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/auth-service/internal/models"
)

// UserFilters defines filters for user queries
type UserFilters struct {
	Role   *models.UserRole
	Status *models.UserStatus
	Limit  int
	Offset int
}

// UserRepository is the credential store. Emails are normalized by the caller.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Create fails with ErrDuplicate when the email is taken
	Create(ctx context.Context, user *models.User) error
	// Update persists role, status, profile and login time. The password hash is left untouched.
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context) (map[models.UserRole]int64, error)
	CountByStatus(ctx context.Context) (map[models.UserStatus]int64, error)
	CountActiveByRole(ctx context.Context, role models.UserRole) (int64, error)
}

// RefreshTokenRepository tracks issued refresh tokens by jti so they can be used once and revoked.
type RefreshTokenRepository interface {
	Save(ctx context.Context, jti, userID string, ttl time.Duration) error
	// Consume atomically removes the jti and reports whether it was present for userID.
	Consume(ctx context.Context, jti, userID string) (bool, error)
	Revoke(ctx context.Context, jti string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}
