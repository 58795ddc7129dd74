package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/auth-service/internal/models"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input past this many bytes and rejects it outright
	MaxPasswordBytes = 72
)

// Validator wraps go-playground/validator with the platform's custom rules.
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

func New() *Validator {
	validate := validator.New()

	// report JSON field names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerRules()

	return v
}

func (v *Validator) registerRules() {
	v.validate.RegisterValidation("password_strength", validatePasswordStrength)
	v.validate.RegisterValidation("user_role", validateUserRole)
	v.validate.RegisterValidation("self_assignable_role", validateSelfAssignableRole)
	v.validate.RegisterValidation("user_status", validateUserStatus)
}

// Validate returns nil or ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ToValidationErrors converts validator errors to the API representation.
func ToValidationErrors(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		ve := ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
			Rule:    fe.Tag(),
		}
		// never echo credentials back
		if fe.Tag() != "password_strength" && fe.Field() != "password" {
			ve.Value = fe.Value()
		}
		out = append(out, ve)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "password_strength":
		return fmt.Sprintf("must be at least %d characters and at most %d bytes", MinPasswordLength, MaxPasswordBytes)
	case "user_role":
		return "must be one of: student, educator, admin"
	case "self_assignable_role":
		return "must be one of: student, educator"
	case "user_status":
		return "must be one of: active, inactive, pending, suspended"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

func validatePasswordStrength(fl validator.FieldLevel) bool {
	return ValidPassword(fl.Field().String())
}

// ValidPassword reports whether password can be accepted and hashed.
func ValidPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength && len(password) <= MaxPasswordBytes
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.UserRole(fl.Field().String()).IsValid()
}

// Admin is never self-assignable.
func validateSelfAssignableRole(fl validator.FieldLevel) bool {
	role := models.UserRole(fl.Field().String())
	return role == models.RoleStudent || role == models.RoleEducator
}

func validateUserStatus(fl validator.FieldLevel) bool {
	return models.UserStatus(fl.Field().String()).IsValid()
}
