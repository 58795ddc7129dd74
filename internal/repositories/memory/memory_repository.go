package memory

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/auth-service/internal/repositories"
)

// MemoryRepository implements Repository and RepositoryManager without external services.
type MemoryRepository struct {
	user         *UserMemory
	refreshToken repositories.RefreshTokenRepository
}

// NewMemoryRepository uses refreshStore when given, otherwise an in-process one.
func NewMemoryRepository(refreshStore repositories.RefreshTokenRepository) *MemoryRepository {
	if refreshStore == nil {
		refreshStore = NewRefreshTokenMemory()
	}
	return &MemoryRepository{
		user:         NewUserMemory(),
		refreshToken: refreshStore,
	}
}

func (r *MemoryRepository) User() repositories.UserRepository {
	return r.user
}

func (r *MemoryRepository) RefreshToken() repositories.RefreshTokenRepository {
	return r.refreshToken
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *MemoryRepository) Close() error {
	return nil
}

func (r *MemoryRepository) Initialize(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) GetRepository() repositories.Repository {
	return r
}

func (r *MemoryRepository) HealthCheck(ctx context.Context) error {
	return r.Ping(ctx)
}

func (r *MemoryRepository) Shutdown(ctx context.Context) error {
	return r.Close()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", repositories.ErrUnavailable, err)
}
