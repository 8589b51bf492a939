package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/app/middleware"
	businessflow "github.com/plastiqc/accounts/business_flow"
	"github.com/plastiqc/accounts/config"
	"github.com/plastiqc/accounts/models"
)

// AdminAccountHandlerInterface defines the contract for admin account handlers
type AdminAccountHandlerInterface interface {
	ListAccounts(c fiber.Ctx) error
	ApprovalQueue(c fiber.Ctx) error
	ApproveAccount(c fiber.Ctx) error
	RejectAccount(c fiber.Ctx) error
	BulkApproveAccounts(c fiber.Ctx) error
	BulkRejectAccounts(c fiber.Ctx) error
	ActivateAccount(c fiber.Ctx) error
	DeactivateAccount(c fiber.Ctx) error
	ListProfileUpdates(c fiber.Ctx) error
	ApproveProfileUpdate(c fiber.Ctx) error
	RejectProfileUpdate(c fiber.Ctx) error
	ListPasswordResets(c fiber.Ctx) error
	ReviewPasswordReset(c fiber.Ctx) error
	CompletePasswordReset(c fiber.Ctx) error
	UserActivity(c fiber.Ctx) error
	SystemActivity(c fiber.Ctx) error
	ExportActivity(c fiber.Ctx) error
	Dashboard(c fiber.Ctx) error
}

// AdminAccountHandler handles administrative account management requests
type AdminAccountHandler struct {
	adminFlow businessflow.AdminAccountFlow
	resetFlow businessflow.PasswordResetFlow
	validator *validator.Validate
}

// NewAdminAccountHandler creates a new admin account handler
func NewAdminAccountHandler(adminFlow businessflow.AdminAccountFlow, resetFlow businessflow.PasswordResetFlow, security *config.SecurityConfig) *AdminAccountHandler {
	return &AdminAccountHandler{
		adminFlow: adminFlow,
		resetFlow: resetFlow,
		validator: newValidator(security),
	}
}

func (h *AdminAccountHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AdminAccountHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// businessErrorResponse maps a flow error to its HTTP status by error category
func (h *AdminAccountHandler) businessErrorResponse(c fiber.Ctx, err error, fallbackMsg, fallbackCode string) error {
	if businessflow.IsAdminRequired(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Administrator privilege required", "ADMIN_REQUIRED", nil)
	}
	if businessflow.IsNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, err.Error(), "NOT_FOUND", nil)
	}
	if businessflow.IsValidationError(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	}

	log.Println(fallbackMsg, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMsg, fallbackCode, nil)
}

func (h *AdminAccountHandler) actor(c fiber.Ctx) (*models.Account, error) {
	account, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return nil, h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	return account, nil
}

func pathID(c fiber.Ctx, name string) (uint, bool) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ListAccounts returns a filtered, paginated account listing
func (h *AdminAccountHandler) ListAccounts(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	var req dto.AdminListAccountsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.adminFlow.ListAccounts(createRequestContext(c, "/api/v1/admin/accounts"), actor, &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to list accounts", "ACCOUNT_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ApprovalQueue lists accounts awaiting initial approval
func (h *AdminAccountHandler) ApprovalQueue(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	result, err := h.adminFlow.ApprovalQueue(createRequestContext(c, "/api/v1/admin/accounts/queue"), actor)
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to load approval queue", "APPROVAL_QUEUE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Approval queue retrieved successfully", result)
}

// ApproveAccount grants an account its initial approval
func (h *AdminAccountHandler) ApproveAccount(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	accountID, ok := pathID(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_ACCOUNT_ID", nil)
	}

	result, err := h.adminFlow.ApproveAccount(createRequestContext(c, "/api/v1/admin/accounts/approve"), actor, accountID, clientMetadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Account approval failed", "ACCOUNT_APPROVE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// RejectAccount rejects a pending registration
func (h *AdminAccountHandler) RejectAccount(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	accountID, ok := pathID(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_ACCOUNT_ID", nil)
	}

	result, err := h.adminFlow.RejectAccount(createRequestContext(c, "/api/v1/admin/accounts/reject"), actor, accountID, clientMetadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Account rejection failed", "ACCOUNT_REJECT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// BulkApproveAccounts approves a batch of pending registrations
func (h *AdminAccountHandler) BulkApproveAccounts(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	var req dto.AdminBulkActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.adminFlow.BulkApproveAccounts(createRequestContext(c, "/api/v1/admin/accounts/bulk-approve"), actor, &req, clientMetadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Bulk account approval failed", "ACCOUNT_BULK_APPROVE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// BulkRejectAccounts rejects a batch of pending registrations
func (h *AdminAccountHandler) BulkRejectAccounts(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	var req dto.AdminBulkActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.adminFlow.BulkRejectAccounts(createRequestContext(c, "/api/v1/admin/accounts/bulk-reject"), actor, &req, clientMetadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Bulk account rejection failed", "ACCOUNT_BULK_REJECT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ActivateAccount reactivates a deactivated account
func (h *AdminAccountHandler) ActivateAccount(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	accountID, ok := pathID(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_ACCOUNT_ID", nil)
	}

	result, err := h.adminFlow.ActivateAccount(createRequestContext(c, "/api/v1/admin/accounts/activate"), actor, accountID, clientMetadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Account activation failed", "ACCOUNT_ACTIVATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// DeactivateAccount soft-deletes an account
func (h *AdminAccountHandler) DeactivateAccount(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	accountID, ok := pathID(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_ACCOUNT_ID", nil)
	}

	result, err := h.adminFlow.DeactivateAccount(createRequestContext(c, "/api/v1/admin/accounts/deactivate"), actor, accountID, clientMetadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Account deactivation failed", "ACCOUNT_DEACTIVATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ListProfileUpdates lists accounts with staged profile changes
func (h *AdminAccountHandler) ListProfileUpdates(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	result, err := h.adminFlow.ListProfileUpdates(createRequestContext(c, "/api/v1/admin/profile-updates"), actor)
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to list pending profile updates", "PROFILE_UPDATE_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pending profile updates retrieved successfully", result)
}

// ApproveProfileUpdate applies an account's staged profile changes
func (h *AdminAccountHandler) ApproveProfileUpdate(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	accountID, ok := pathID(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_ACCOUNT_ID", nil)
	}

	result, err := h.adminFlow.ApproveProfileUpdate(createRequestContext(c, "/api/v1/admin/profile-updates/approve"), actor, accountID, clientMetadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Profile approval failed", "PROFILE_APPROVE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// RejectProfileUpdate discards an account's staged profile changes
func (h *AdminAccountHandler) RejectProfileUpdate(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	accountID, ok := pathID(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_ACCOUNT_ID", nil)
	}

	result, err := h.adminFlow.RejectProfileUpdate(createRequestContext(c, "/api/v1/admin/profile-updates/reject"), actor, accountID, clientMetadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Profile rejection failed", "PROFILE_REJECT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ListPasswordResets returns the reset review queue grouped by status
func (h *AdminAccountHandler) ListPasswordResets(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	result, err := h.resetFlow.ListForReview(createRequestContext(c, "/api/v1/admin/password-resets"), actor)
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to list reset requests", "RESET_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Reset requests retrieved successfully", result)
}

// ReviewPasswordReset approves or rejects a pending reset request
func (h *AdminAccountHandler) ReviewPasswordReset(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	requestID, ok := pathID(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request ID", "INVALID_REQUEST_ID", nil)
	}

	var req dto.ReviewPasswordResetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.resetFlow.Review(createRequestContext(c, "/api/v1/admin/password-resets/review"), actor, requestID, &req, clientMetadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Reset review failed", "RESET_REVIEW_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// CompletePasswordReset sets the new password for an approved request
func (h *AdminAccountHandler) CompletePasswordReset(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	requestID, ok := pathID(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request ID", "INVALID_REQUEST_ID", nil)
	}

	var req dto.CompletePasswordResetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.resetFlow.Complete(createRequestContext(c, "/api/v1/admin/password-resets/complete"), actor, requestID, &req, clientMetadata(c))
	if err != nil {
		return h.businessErrorResponse(c, err, "Reset completion failed", "RESET_COMPLETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// UserActivity shows one account's recent audit trail
func (h *AdminAccountHandler) UserActivity(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	accountID, ok := pathID(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_ACCOUNT_ID", nil)
	}

	result, err := h.adminFlow.UserActivity(createRequestContext(c, "/api/v1/admin/accounts/activity"), actor, accountID)
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to load account activity", "USER_ACTIVITY_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account activity retrieved successfully", result)
}

// SystemActivity shows the filtered system-wide audit trail
func (h *AdminAccountHandler) SystemActivity(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	var req dto.AdminSystemActivityRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.adminFlow.SystemActivity(createRequestContext(c, "/api/v1/admin/activity"), actor, &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to load system activity", "SYSTEM_ACTIVITY_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "System activity retrieved successfully", result)
}

// ExportActivity streams the filtered audit trail as an Excel workbook
func (h *AdminAccountHandler) ExportActivity(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	var req dto.AdminSystemActivityRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	filename, content, err := h.adminFlow.ExportActivity(createRequestContext(c, "/api/v1/admin/activity/export"), actor, &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Activity export failed", "ACTIVITY_EXPORT_FAILED")
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(content)
}

// Dashboard returns the admin dashboard statistics
func (h *AdminAccountHandler) Dashboard(c fiber.Ctx) error {
	actor, err := h.actor(c)
	if actor == nil {
		return err
	}

	result, err := h.adminFlow.Dashboard(createRequestContext(c, "/api/v1/admin/dashboard"), actor)
	if err != nil {
		return h.businessErrorResponse(c, err, "Failed to assemble dashboard", "DASHBOARD_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Dashboard retrieved successfully", result)
}
