package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/services"
	"github.com/SAP-F-2025/auth-service/internal/utils"
)

type ProfileHandler struct {
	BaseHandler
	profileService services.ProfileService
}

func NewProfileHandler(profileService services.ProfileService, logger utils.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:    NewBaseHandler(logger),
		profileService: profileService,
	}
}

// GetProfile returns the caller's profile
// @Summary Get own profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse{data=models.User}
// @Router /profile/me [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := GetUserIDFromContext(c)
	if !ok {
		h.handleServiceError(c, services.ErrUnauthenticated)
		return
	}

	user, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Profile retrieved successfully", user)
}

// UpdateProfile applies a partial update to the caller's profile
// @Summary Update own profile
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProfileUpdateRequest true "Fields to change"
// @Success 200 {object} SuccessResponse{data=models.User}
// @Failure 400 {object} ErrorResponse
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req models.ProfileUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.withUser(c, "Profile updated successfully", func(userID string) (*models.User, error) {
		return h.profileService.UpdateProfile(c.Request.Context(), userID, &req)
	})
}

// AddEducation appends an education entry
// @Summary Add education
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Education true "Education entry"
// @Success 200 {object} SuccessResponse{data=models.User}
// @Failure 400 {object} ErrorResponse
// @Router /profile/education [post]
func (h *ProfileHandler) AddEducation(c *gin.Context) {
	var req models.Education
	if !h.bindJSON(c, &req) {
		return
	}

	h.withUser(c, "Education added successfully", func(userID string) (*models.User, error) {
		return h.profileService.AddEducation(c.Request.Context(), userID, &req)
	})
}

// AddExperience appends an experience entry
// @Summary Add experience
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Experience true "Experience entry"
// @Success 200 {object} SuccessResponse{data=models.User}
// @Failure 400 {object} ErrorResponse
// @Router /profile/experience [post]
func (h *ProfileHandler) AddExperience(c *gin.Context) {
	var req models.Experience
	if !h.bindJSON(c, &req) {
		return
	}

	h.withUser(c, "Experience added successfully", func(userID string) (*models.User, error) {
		return h.profileService.AddExperience(c.Request.Context(), userID, &req)
	})
}

// UpdateSkills replaces the skill list
// @Router /profile/skills [put]
func (h *ProfileHandler) UpdateSkills(c *gin.Context) {
	var req models.SkillsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.withUser(c, "Skills updated successfully", func(userID string) (*models.User, error) {
		return h.profileService.UpdateSkills(c.Request.Context(), userID, req.Skills)
	})
}

// UpdateInterests replaces the interest list
// @Router /profile/interests [put]
func (h *ProfileHandler) UpdateInterests(c *gin.Context) {
	var req models.InterestsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.withUser(c, "Interests updated successfully", func(userID string) (*models.User, error) {
		return h.profileService.UpdateInterests(c.Request.Context(), userID, req.Interests)
	})
}

func (h *ProfileHandler) withUser(c *gin.Context, message string, fn func(userID string) (*models.User, error)) {
	userID, ok := GetUserIDFromContext(c)
	if !ok {
		h.handleServiceError(c, services.ErrUnauthenticated)
		return
	}

	user, err := fn(userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, message, user)
}
