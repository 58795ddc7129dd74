package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/services"
	"github.com/SAP-F-2025/auth-service/internal/utils"
	"github.com/SAP-F-2025/auth-service/internal/validator"
)

type AdminHandler struct {
	BaseHandler
	adminService services.AdminService
	validator    *validator.Validator
}

func NewAdminHandler(adminService services.AdminService, validator *validator.Validator, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler:  NewBaseHandler(logger),
		adminService: adminService,
		validator:    validator,
	}
}

// ListUsers lists accounts with optional role and status filters
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} SuccessResponse{data=models.UserListResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var filters services.UserListFilters

	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		if !r.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid role filter"})
			return
		}
		filters.Role = &r
	}
	if status := c.Query("status"); status != "" {
		s := models.UserStatus(status)
		if !s.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid status filter"})
			return
		}
		filters.Status = &s
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.Size, _ = strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(services.DefaultPageSize)))

	h.LogRequest(c, "Listing users", "page", filters.Page, "size", filters.Size)

	users, err := h.adminService.ListUsers(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Users retrieved successfully", users)
}

// UpdateUserRole changes the role of an account
// @Summary Update user role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body models.UpdateRoleRequest true "New role"
// @Success 200 {object} SuccessResponse{data=models.User}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/users/{id}/role [patch]
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	var req models.UpdateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, services.NewValidationError(err))
		return
	}

	actorID, _ := GetUserIDFromContext(c)
	userID := c.Param("id")
	h.LogRequest(c, "Updating user role", "user_id", userID, "role", req.Role)

	user, err := h.adminService.UpdateUserRole(c.Request.Context(), actorID, userID, req.Role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "User role updated successfully", user)
}

// UpdateUserStatus changes the status of an account
// @Summary Update user status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body models.UpdateStatusRequest true "New status"
// @Success 200 {object} SuccessResponse{data=models.User}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/users/{id}/status [patch]
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, services.NewValidationError(err))
		return
	}

	actorID, _ := GetUserIDFromContext(c)
	userID := c.Param("id")
	h.LogRequest(c, "Updating user status", "user_id", userID, "status", req.Status)

	user, err := h.adminService.UpdateUserStatus(c.Request.Context(), actorID, userID, req.Status)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "User status updated successfully", user)
}

// DeleteUser removes an account
// @Summary Delete user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actorID, _ := GetUserIDFromContext(c)
	userID := c.Param("id")
	h.LogRequest(c, "Deleting user", "user_id", userID)

	if err := h.adminService.DeleteUser(c.Request.Context(), actorID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "User deleted successfully", nil)
}

// GetSystemStats returns account counts
// @Summary System stats
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse{data=models.SystemStats}
// @Router /admin/stats [get]
func (h *AdminHandler) GetSystemStats(c *gin.Context) {
	stats, err := h.adminService.GetSystemStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "System stats retrieved successfully", stats)
}
