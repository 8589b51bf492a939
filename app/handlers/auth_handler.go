// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/app/middleware"
	businessflow "github.com/plastiqc/accounts/business_flow"
	"github.com/plastiqc/accounts/config"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	RegisterCaptcha(c fiber.Ctx) error
	Register(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	ForgotPassword(c fiber.Ctx) error
	Health(c fiber.Ctx) error
}

// AuthHandler handles registration and authentication HTTP requests
type AuthHandler struct {
	registrationFlow businessflow.RegistrationFlow
	loginFlow        businessflow.LoginFlow
	resetFlow        businessflow.PasswordResetFlow
	validator        *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(
	registrationFlow businessflow.RegistrationFlow,
	loginFlow businessflow.LoginFlow,
	resetFlow businessflow.PasswordResetFlow,
	security *config.SecurityConfig,
) *AuthHandler {
	return &AuthHandler{
		registrationFlow: registrationFlow,
		loginFlow:        loginFlow,
		resetFlow:        resetFlow,
		validator:        newValidator(security),
	}
}

func (h *AuthHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AuthHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RegisterCaptcha issues a fresh captcha challenge for the
// registration and forgot-password forms
func (h *AuthHandler) RegisterCaptcha(c fiber.Ctx) error {
	result, err := h.registrationFlow.InitCaptcha(createRequestContext(c, "/api/v1/auth/captcha"))
	if err != nil {
		log.Println("Captcha init failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Captcha init failed", "CAPTCHA_INIT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Captcha generated", result)
}

// Register handles self-service account registration
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.registrationFlow.Register(createRequestContext(c, "/api/v1/auth/register"), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCaptchaFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Captcha verification failed", "CAPTCHA_FAILED", nil)
		}
		if businessflow.IsUsernameAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Username already exists", "USERNAME_EXISTS", nil)
		}
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", "EMAIL_EXISTS", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}

		log.Println("Registration failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Registration failed", "REGISTRATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// Login handles account authentication
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.loginFlow.Login(createRequestContext(c, "/api/v1/auth/login"), &req, clientMetadata(c))
	if err != nil {
		// Pending approval is surfaced distinctly so the client can tell
		// the user to wait rather than retry credentials
		if businessflow.IsPendingApproval(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Account is pending admin approval", dto.ErrorPendingApproval, nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Account is deactivated", dto.ErrorAccountInactive, nil)
		}
		if businessflow.IsInvalidLogin(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid username or password", dto.ErrorInvalidCredentials, nil)
		}

		log.Println("Login failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, fiber.Map{
		"access_token":  result.Session.SessionToken,
		"refresh_token": result.Session.RefreshToken,
		"token_type":    result.Session.TokenType,
		"expires_in":    result.Session.ExpiresIn,
		"account":       result.Account,
	})
}

// Logout revokes the caller's current session
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	account, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	token, ok := middleware.GetSessionTokenFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.loginFlow.Logout(createRequestContext(c, "/api/v1/auth/logout"), account, token, clientMetadata(c))
	if err != nil {
		if businessflow.IsSessionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Session not found", "SESSION_NOT_FOUND", nil)
		}

		log.Println("Logout failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Logout failed", "LOGOUT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, nil)
}

// ForgotPassword files an unauthenticated password reset request for
// later admin review
func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.resetFlow.ForgotPassword(createRequestContext(c, "/api/v1/auth/forgot-password"), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCaptchaFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Captcha verification failed", "CAPTCHA_FAILED", nil)
		}
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "No active account with that username", dto.ErrorAccountNotFound, nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}

		log.Println("Forgot password failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Password reset request failed", "PASSWORD_RESET_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, nil)
}

// Health handles health check requests
func (h *AuthHandler) Health(c fiber.Ctx) error {
	return h.SuccessResponse(c, fiber.StatusOK, "Auth service is healthy", fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "auth-handler",
	})
}
