package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenConfig is built once at startup and never mutated.
type TokenConfig struct {
	AccessSecret     string
	AccessExpiresIn  time.Duration
	RefreshSecret    string
	RefreshExpiresIn time.Duration
	Leeway           time.Duration
}

func (c TokenConfig) Validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("token secrets must be set")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("access and refresh secrets must differ")
	}
	if c.AccessExpiresIn <= 0 || c.RefreshExpiresIn <= 0 {
		return errors.New("token expiry must be positive")
	}
	return nil
}

// Claims carries only the user id. Role and status are always read from the store.
type Claims struct {
	UserID    string `json:"userId"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string

	// RefreshID is the jti of RefreshToken
	RefreshID      string
	RefreshExpires time.Time
}

type tokenService struct {
	config TokenConfig
	now    func() time.Time
}

func NewTokenService(config TokenConfig) (TokenService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &tokenService{config: config, now: time.Now}, nil
}

func (s *tokenService) IssueAccessToken(userID string) (string, error) {
	token, _, _, err := s.sign(userID, tokenTypeAccess, s.config.AccessSecret, s.config.AccessExpiresIn)
	return token, err
}

func (s *tokenService) IssueRefreshToken(userID string) (string, error) {
	token, _, _, err := s.sign(userID, tokenTypeRefresh, s.config.RefreshSecret, s.config.RefreshExpiresIn)
	return token, err
}

func (s *tokenService) IssuePair(userID string) (*TokenPair, error) {
	access, _, _, err := s.sign(userID, tokenTypeAccess, s.config.AccessSecret, s.config.AccessExpiresIn)
	if err != nil {
		return nil, err
	}
	refresh, jti, expires, err := s.sign(userID, tokenTypeRefresh, s.config.RefreshSecret, s.config.RefreshExpiresIn)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:    access,
		RefreshToken:   refresh,
		RefreshID:      jti,
		RefreshExpires: expires,
	}, nil
}

func (s *tokenService) VerifyAccessToken(token string) (string, error) {
	claims, err := s.parse(token, tokenTypeAccess, s.config.AccessSecret)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *tokenService) VerifyRefreshToken(token string) (*Claims, error) {
	return s.parse(token, tokenTypeRefresh, s.config.RefreshSecret)
}

func (s *tokenService) RefreshTTL() time.Duration {
	return s.config.RefreshExpiresIn
}

func (s *tokenService) sign(userID, tokenType, secret string, ttl time.Duration) (string, string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()

	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, jti, expiresAt, nil
}

func (s *tokenService) parse(token, tokenType, secret string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.config.Leeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if !parsed.Valid || claims.UserID == "" || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// mapJWTError collapses every library failure into ErrInvalidToken, keeping the cause for logs.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return newError(ErrInvalidToken, jwt.ErrTokenExpired)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newError(ErrInvalidToken, jwt.ErrTokenSignatureInvalid)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newError(ErrInvalidToken, jwt.ErrTokenMalformed)
	default:
		return newError(ErrInvalidToken, err)
	}
}
