package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/app/middleware"
	businessflow "github.com/plastiqc/accounts/business_flow"
	"github.com/plastiqc/accounts/config"
)

// ProfileHandlerInterface defines the contract for profile handlers
type ProfileHandlerInterface interface {
	GetProfile(c fiber.Ctx) error
	UpdateProfile(c fiber.Ctx) error
	DeleteAccount(c fiber.Ctx) error
	RequestPasswordReset(c fiber.Ctx) error
}

// ProfileHandler handles profile management HTTP requests
type ProfileHandler struct {
	profileFlow businessflow.ProfileFlow
	resetFlow   businessflow.PasswordResetFlow
	validator   *validator.Validate
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileFlow businessflow.ProfileFlow, resetFlow businessflow.PasswordResetFlow, security *config.SecurityConfig) *ProfileHandler {
	return &ProfileHandler{
		profileFlow: profileFlow,
		resetFlow:   resetFlow,
		validator:   newValidator(security),
	}
}

func (h *ProfileHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ProfileHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetProfile returns the caller's profile and any staged changes
func (h *ProfileHandler) GetProfile(c fiber.Ctx) error {
	account, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	result, err := h.profileFlow.GetProfile(createRequestContext(c, "/api/v1/profile"), account)
	if err != nil {
		log.Println("Get profile failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load profile", "PROFILE_LOAD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile retrieved successfully", result)
}

// UpdateProfile applies or stages a profile edit
func (h *ProfileHandler) UpdateProfile(c fiber.Ctx) error {
	account, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.UpdateProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.profileFlow.UpdateProfile(createRequestContext(c, "/api/v1/profile"), account, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsNoProfileChanges(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No profile changes submitted", "NO_PROFILE_CHANGES", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}

		log.Println("Profile update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Profile update failed", "PROFILE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// DeleteAccount soft-deletes the caller's account
func (h *ProfileHandler) DeleteAccount(c fiber.Ctx) error {
	account, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.DeleteAccountRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.profileFlow.DeleteAccount(createRequestContext(c, "/api/v1/profile"), account, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Deletion must be confirmed", "DELETE_NOT_CONFIRMED", nil)
		}

		log.Println("Account deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Account deletion failed", "ACCOUNT_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, nil)
}

// RequestPasswordReset files an authenticated reset request; admins may
// file for another account
func (h *ProfileHandler) RequestPasswordReset(c fiber.Ctx) error {
	account, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.RequestPasswordResetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.resetFlow.RequestReset(createRequestContext(c, "/api/v1/profile/password-reset"), account, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsResetNotForSelf(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Only administrators may request resets for other accounts", "RESET_NOT_FOR_SELF", nil)
		}
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Target account not found", "ACCOUNT_NOT_FOUND", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}

		log.Println("Password reset request failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Password reset request failed", "PASSWORD_RESET_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}
