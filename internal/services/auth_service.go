package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/auth-service/internal/events"
	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/repositories"
	"github.com/SAP-F-2025/auth-service/internal/validator"
)

type AuthServiceConfig struct {
	BcryptCost           int
	StoreTimeout         time.Duration
	RefreshTokenRotation bool
}

type authService struct {
	repo      repositories.Repository
	tokens    TokenService
	events    events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    AuthServiceConfig

	// compared against when the email is unknown so both login failures cost one bcrypt run
	dummyHash []byte
}

func NewAuthService(
	repo repositories.Repository,
	tokens TokenService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
	config AuthServiceConfig,
) (AuthService, error) {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = 5 * time.Second
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}

	return &authService{
		repo:      repo,
		tokens:    tokens,
		events:    publisher,
		logger:    logger,
		validator: validator,
		config:    config,
		dummyHash: dummy,
	}, nil
}

func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*AuthResult, error) {
	req.Email = models.NormalizeEmail(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, NewValidationError(err)
	}

	email := req.Email
	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}

	exists, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (bool, error) {
		return s.repo.User().ExistsByEmail(ctx, email)
	})
	if err != nil {
		return nil, storeError(err)
	}
	if exists {
		return nil, ErrDuplicateAccount
	}

	user := &models.User{
		ID:     uuid.NewString(),
		Email:  email,
		Role:   role,
		Status: models.StatusActive,
		Profile: datatypes.NewJSONType(models.NewUserProfile(
			strings.TrimSpace(req.Profile.FirstName),
			strings.TrimSpace(req.Profile.LastName),
		)),
	}
	if err := user.SetPassword(req.Password, s.config.BcryptCost); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// the unique index decides between concurrent registrations for one email
	_, err = withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.User().Create(ctx, user)
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrDuplicateAccount
		}
		return nil, storeError(err)
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User registered", "user_id", user.ID, "role", user.Role)
	s.publish(ctx, events.UserRegistered, events.UserEvent{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Status: user.Status,
	})

	return &AuthResult{
		User:         sanitize(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*AuthResult, error) {
	req.Email = models.NormalizeEmail(req.Email)
	// malformed input fails like any other bad credential
	if err := s.validator.Validate(req); err != nil {
		s.loginFailed(ctx, "", "malformed_request")
		return nil, ErrInvalidCredentials
	}

	email := req.Email

	user, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (*models.User, error) {
		return s.repo.User().GetByEmail(ctx, email)
	})
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, storeError(err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		s.loginFailed(ctx, "", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if !user.ComparePassword(req.Password) {
		s.loginFailed(ctx, user.ID, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	// status is only revealed to a caller who proved the password
	if !user.IsActive() {
		s.loginFailed(ctx, user.ID, "account_"+string(user.Status))
		return nil, ErrAccountNotActive
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if _, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.User().Update(ctx, user)
	}); err != nil {
		s.logger.WarnContext(ctx, "Failed to record login time", "user_id", user.ID, "error", err)
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User logged in", "user_id", user.ID)
	s.publish(ctx, events.UserLoggedIn, events.UserEvent{UserID: user.ID, Role: user.Role})

	return &AuthResult{
		User:         sanitize(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (*models.User, error) {
		return s.repo.User().GetByID(ctx, claims.UserID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAccountNotFound
		}
		return nil, storeError(err)
	}

	// the replacement is stored before the presented token is spent, so a
	// failed save leaves the caller's current token usable
	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if s.config.RefreshTokenRotation {
		if err := s.consumeRefreshToken(ctx, claims.ID, user.ID); err != nil {
			s.discardRefreshToken(ctx, pair.RefreshID, user.ID)
			return nil, err
		}
	}

	s.publish(ctx, events.UserTokenRefreshed, events.UserEvent{UserID: user.ID})
	return pair, nil
}

// consumeRefreshToken enforces single use. Presenting an already used token
// revokes every session of the user since the token has likely leaked.
func (s *authService) consumeRefreshToken(ctx context.Context, jti, userID string) error {
	ok, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (bool, error) {
		return s.repo.RefreshToken().Consume(ctx, jti, userID)
	})
	if err != nil {
		return storeError(err)
	}
	if ok {
		return nil
	}

	s.logger.WarnContext(ctx, "Refresh token reuse detected", "user_id", userID)
	if _, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.RefreshToken().RevokeAllForUser(ctx, userID)
	}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to revoke sessions", "user_id", userID, "error", err)
	}
	return newError(ErrInvalidToken, fmt.Errorf("refresh token %s not active", jti))
}

func (s *authService) discardRefreshToken(ctx context.Context, jti, userID string) {
	if _, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.RefreshToken().Revoke(ctx, jti)
	}); err != nil {
		s.logger.WarnContext(ctx, "Failed to discard unused refresh token", "user_id", userID, "error", err)
	}
}

func (s *authService) Logout(ctx context.Context, userID, refreshToken string) error {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	if claims.UserID != userID {
		return ErrInvalidToken
	}

	if s.config.RefreshTokenRotation {
		if _, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.repo.RefreshToken().Revoke(ctx, claims.ID)
		}); err != nil {
			return storeError(err)
		}
	}

	s.publish(ctx, events.UserLoggedOut, events.UserEvent{UserID: userID})
	return nil
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	userID, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, newError(ErrInvalidOrExpiredToken, err)
	}

	user, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (*models.User, error) {
		return s.repo.User().GetByID(ctx, userID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, newError(ErrInvalidOrExpiredToken, err)
		}
		return nil, storeError(err)
	}

	return sanitize(user), nil
}

func (s *authService) issuePair(ctx context.Context, userID string) (*TokenPair, error) {
	pair, err := s.tokens.IssuePair(userID)
	if err != nil {
		return nil, err
	}

	if s.config.RefreshTokenRotation {
		_, err := withStoreTimeout(ctx, s.config.StoreTimeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.repo.RefreshToken().Save(ctx, pair.RefreshID, userID, s.tokens.RefreshTTL())
		})
		if err != nil {
			return nil, storeError(err)
		}
	}

	return pair, nil
}

func (s *authService) loginFailed(ctx context.Context, userID, reason string) {
	s.logger.InfoContext(ctx, "Login failed", "user_id", userID, "reason", reason)
	s.publish(ctx, events.UserLoginFailed, events.UserEvent{UserID: userID, Reason: reason})
}

func (s *authService) publish(ctx context.Context, eventType string, data events.UserEvent) {
	publishEvent(ctx, s.events, s.logger, eventType, data)
}

// ===== SHARED HELPERS =====

// withStoreTimeout bounds a single store call.
func withStoreTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// storeError reports any unexpected store failure as StoreUnavailable.
func storeError(err error) error {
	return newError(ErrStoreUnavailable, err)
}

// sanitize returns a copy without the password hash.
func sanitize(user *models.User) *models.User {
	clean := user.Clone()
	clean.PasswordHash = ""
	return clean
}

func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType string, data events.UserEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "event_type", eventType, "error", err)
	}
}
