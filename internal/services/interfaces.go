package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/repositories"
)

// ===== TOKEN SERVICE =====

type TokenService interface {
	IssueAccessToken(userID string) (string, error)
	IssueRefreshToken(userID string) (string, error)
	IssuePair(userID string) (*TokenPair, error)

	// VerifyAccessToken returns the user id or ErrInvalidToken
	VerifyAccessToken(token string) (string, error)
	// VerifyRefreshToken returns the claims or ErrInvalidToken
	VerifyRefreshToken(token string) (*Claims, error)

	RefreshTTL() time.Duration
}

// ===== AUTH SERVICE =====

type AuthResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID, refreshToken string) error

	// Authenticate verifies an access token and loads its user
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// ===== ADMIN SERVICE =====

type UserListFilters struct {
	Role   *models.UserRole
	Status *models.UserStatus
	Page   int
	Size   int
}

type AdminService interface {
	ListUsers(ctx context.Context, filters UserListFilters) (*models.UserListResponse, error)
	UpdateUserRole(ctx context.Context, actorID, userID string, role models.UserRole) (*models.User, error)
	UpdateUserStatus(ctx context.Context, actorID, userID string, status models.UserStatus) (*models.User, error)
	DeleteUser(ctx context.Context, actorID, userID string) error
	GetSystemStats(ctx context.Context) (*models.SystemStats, error)

	// EnsureAdmin creates the bootstrap admin when no admin exists
	EnsureAdmin(ctx context.Context, email, password string) error
}

// ===== PROFILE SERVICE =====

type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req *models.ProfileUpdateRequest) (*models.User, error)
	AddEducation(ctx context.Context, userID string, education *models.Education) (*models.User, error)
	AddExperience(ctx context.Context, userID string, experience *models.Experience) (*models.User, error)
	UpdateSkills(ctx context.Context, userID string, skills []string) (*models.User, error)
	UpdateInterests(ctx context.Context, userID string, interests []string) (*models.User, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Token() TokenService
	Auth() AuthService
	Admin() AdminService
	Profile() ProfileService

	Repository() repositories.Repository

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error

	// WithTimeout derives a context bounded by the configured default timeout
	WithTimeout(parent context.Context) (context.Context, context.CancelFunc)
}
