package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/auth-service/internal/services"
	"github.com/SAP-F-2025/auth-service/internal/utils"
	"github.com/SAP-F-2025/auth-service/internal/validator"
)

const healthCheckTimeout = 2 * time.Second

type HandlerManager struct {
	authHandler    *AuthHandler
	adminHandler   *AdminHandler
	profileHandler *ProfileHandler
	authMiddleware *AuthMiddleware
	serviceManager services.ServiceManager
	logger         utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:    NewAuthHandler(serviceManager.Auth(), logger),
		adminHandler:   NewAdminHandler(serviceManager.Admin(), validator, logger),
		profileHandler: NewProfileHandler(serviceManager.Profile(), logger),
		authMiddleware: NewAuthMiddleware(serviceManager.Auth(), logger),
		serviceManager: serviceManager,
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", hm.authHandler.Register)
		auth.POST("/login", hm.authHandler.Login)
		auth.POST("/refresh-token", hm.authHandler.RefreshToken)

		auth.GET("/me", hm.authMiddleware.AuthMiddleware(), hm.authHandler.Me)
		auth.POST("/logout", hm.authMiddleware.AuthMiddleware(), hm.authHandler.Logout)
	}

	// Profile routes - any authenticated user
	profile := api.Group("/profile")
	profile.Use(hm.authMiddleware.AuthMiddleware(), hm.authMiddleware.RequireAnyRole())
	{
		profile.GET("/me", hm.profileHandler.GetProfile)
		profile.PUT("", hm.profileHandler.UpdateProfile)
		profile.POST("/education", hm.profileHandler.AddEducation)
		profile.POST("/experience", hm.profileHandler.AddExperience)
		profile.PUT("/skills", hm.profileHandler.UpdateSkills)
		profile.PUT("/interests", hm.profileHandler.UpdateInterests)
	}

	// Admin routes - admins only
	admin := api.Group("/admin")
	admin.Use(hm.authMiddleware.AuthMiddleware(), hm.authMiddleware.RequireAdmin())
	{
		admin.GET("/users", hm.adminHandler.ListUsers)
		admin.PATCH("/users/:id/role", hm.adminHandler.UpdateUserRole)
		admin.PATCH("/users/:id/status", hm.adminHandler.UpdateUserStatus)
		admin.DELETE("/users/:id", hm.adminHandler.DeleteUser)
		admin.GET("/stats", hm.adminHandler.GetSystemStats)
	}

	router.GET("/health", hm.health)
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		utils.FromContext(c, hm.logger).Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "auth-service",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "auth-service",
	})
}
