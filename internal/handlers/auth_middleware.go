package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/services"
	"github.com/SAP-F-2025/auth-service/internal/utils"
)

const bearerPrefix = "Bearer "

type userContextKey struct{}

// AuthMiddleware authenticates requests with locally issued access tokens
type AuthMiddleware struct {
	auth   services.AuthService
	logger utils.Logger
}

func NewAuthMiddleware(auth services.AuthService, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth:   auth,
		logger: logger,
	}
}

// AuthMiddleware requires a valid bearer token and loads its user from the store.
// Role and status always come from the stored record, never from the token.
func (am *AuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, services.ErrMissingToken, am.logger)
			return
		}

		user, err := am.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err, am.logger)
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// RequireRoleMiddleware admits only users whose role is in roles
func (am *AuthMiddleware) RequireRoleMiddleware(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			abortWithError(c, services.ErrUnauthenticated, am.logger)
			return
		}

		if !user.HasRole(roles...) {
			utils.FromContext(c, am.logger).Warn("Insufficient permissions",
				"user_id", user.ID,
				"role", user.Role,
				"required", roles)
			abortWithError(c, services.ErrInsufficientPermissions, am.logger)
			return
		}

		c.Next()
	}
}

func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return am.RequireRoleMiddleware(models.RoleAdmin)
}

func (am *AuthMiddleware) RequireEducatorOrAdmin() gin.HandlerFunc {
	return am.RequireRoleMiddleware(models.RoleEducator, models.RoleAdmin)
}

func (am *AuthMiddleware) RequireAnyRole() gin.HandlerFunc {
	return am.RequireRoleMiddleware(models.AllRoles()...)
}

// bearerToken accepts exactly "Bearer <token>"
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func setUser(c *gin.Context, user *models.User) {
	c.Set("user", user)
	c.Set("user_id", user.ID)
	c.Set("user_role", user.Role)
	c.Set("user_email", user.Email)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userContextKey{}, user))
}

// UserFromContext returns the authenticated user attached to a request context
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*models.User)
	return user, ok && user != nil
}

// GetUserFromContext gets the authenticated user from gin context
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// GetUserIDFromContext gets the authenticated user id from gin context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	return userID, userID != ""
}
