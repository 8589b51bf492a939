// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"strings"
	"time"

	businessflow "github.com/plastiqc/accounts/business_flow"
	"github.com/plastiqc/accounts/config"
	"github.com/plastiqc/accounts/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// newValidator builds a validator with the custom tags the request DTOs
// use. The password policy comes from the security configuration.
func newValidator(security *config.SecurityConfig) *validator.Validate {
	v := validator.New()

	// Letters and spaces only, for human names
	v.RegisterValidation("alpha_space", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || char == ' ') {
				return false
			}
		}
		return true
	})

	// Letters, digits, and @ . + - _ for usernames
	v.RegisterValidation("username_format", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return false
		}
		for _, char := range value {
			switch {
			case char >= 'a' && char <= 'z':
			case char >= 'A' && char <= 'Z':
			case char >= '0' && char <= '9':
			case char == '@' || char == '.' || char == '+' || char == '-' || char == '_':
			default:
				return false
			}
		}
		return true
	})

	v.RegisterValidation("phone_format", func(fl validator.FieldLevel) bool {
		return models.PhoneNumberPattern.MatchString(fl.Field().String())
	})

	v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()

		if len(value) < security.PasswordMinLength {
			return false
		}

		hasUpper := false
		hasNumber := false

		for _, char := range value {
			if char >= 'A' && char <= 'Z' {
				hasUpper = true
			}
			if char >= '0' && char <= '9' {
				hasNumber = true
			}
		}

		if security.PasswordRequireUpper && !hasUpper {
			return false
		}
		if security.PasswordRequireNum && !hasNumber {
			return false
		}
		return true
	})

	v.RegisterValidation("company_role", func(fl validator.FieldLevel) bool {
		return models.ValidRoles[fl.Field().String()]
	})

	v.RegisterValidation("company_section", func(fl validator.FieldLevel) bool {
		return models.ValidSections[fl.Field().String()]
	})

	v.RegisterValidation("company_branch", func(fl validator.FieldLevel) bool {
		return models.ValidBranches[fl.Field().String()]
	})

	return v
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "eqfield":
		return err.Field() + " must match " + err.Param()
	case "alpha_space":
		return err.Field() + " must contain only letters and spaces"
	case "username_format":
		return "Username may contain letters, digits, and @ . + - _ only"
	case "phone_format":
		return "Phone number must be 9 to 15 digits with an optional leading +"
	case "password_strength":
		return "Password must contain at least 1 uppercase letter and 1 number"
	case "company_role":
		return "Unknown company role"
	case "company_section":
		return "Unknown production section"
	case "company_branch":
		return "Unknown company branch"
	default:
		return err.Field() + " is invalid"
	}
}

// validationMessages flattens validator errors into user-facing strings
func validationMessages(err error) []string {
	var messages []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, ve := range verrs {
			messages = append(messages, getValidationErrorMessage(ve))
		}
		return messages
	}
	return []string{err.Error()}
}

// clientIP prefers the first hop of X-Forwarded-For when the service
// runs behind a proxy, falling back to the direct peer address.
func clientIP(c fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	return c.IP()
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", clientIP(c))
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}

// clientMetadata assembles audit metadata from the request
func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(clientIP(c), c.Get("User-Agent"))
	if requestID := c.Get("X-Request-ID"); requestID != "" {
		metadata.SetRequestID(requestID)
	}
	return metadata
}
