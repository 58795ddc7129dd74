package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/auth-service/internal/services"
	"github.com/SAP-F-2025/auth-service/internal/utils"
	"github.com/SAP-F-2025/auth-service/internal/validator"
)

// SuccessResponse is the envelope of every successful response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope of every failed response
type ErrorResponse struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Errors  validator.ValidationErrors `json:"errors,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming request with additional key-value pairs
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.Request.URL.Path)
	utils.FromContext(c, h.logger).Info(msg, args...)
}

// LogError logs an error together with the request it belongs to
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	utils.FromContext(c, h.logger).Error(msg,
		"error", err,
		"method", c.Request.Method,
		"path", c.Request.URL.Path)
}

func (h *BaseHandler) respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// bindJSON decodes the body into dst, answering 400 itself on failure
func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
		})
		return false
	}
	return true
}

// handleServiceError maps service errors to the HTTP taxonomy. Causes are logged, never returned.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	abortWithError(c, err, h.logger)
}

func abortWithError(c *gin.Context, err error, logger utils.Logger) {
	var authErr *services.AuthError
	if !errors.As(err, &authErr) || authErr.Kind == services.KindInternal {
		utils.FromContext(c, logger).Error("Unexpected service error",
			"error", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
		return
	}

	status := StatusForKind(authErr.Kind)
	if status >= http.StatusInternalServerError {
		utils.FromContext(c, logger).Error("Service unavailable",
			"error", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path)
	}

	resp := ErrorResponse{Message: authErr.Message}
	if authErr.Kind == services.KindValidation {
		resp.Errors = validationDetails(authErr.Err)
	}
	c.AbortWithStatusJSON(status, resp)
}

func validationDetails(err error) validator.ValidationErrors {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return validator.ToValidationErrors(err)
}

// StatusForKind returns the HTTP status of an error kind
func StatusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindDuplicateAccount:
		return http.StatusBadRequest
	case services.KindInvalidCredentials,
		services.KindMissingToken,
		services.KindInvalidOrExpiredToken,
		services.KindInvalidToken,
		services.KindAccountNotFound,
		services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindAccountNotActive, services.KindInsufficientPermissions:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindLastAdmin:
		return http.StatusConflict
	case services.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
