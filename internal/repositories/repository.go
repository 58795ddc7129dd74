package repositories

import "context"

// Repository aggregates the stores backing the identity service
type Repository interface {
	User() UserRepository
	RefreshToken() RefreshTokenRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize prepares schemas and connections
	Initialize(ctx context.Context) error

	GetRepository() Repository

	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
