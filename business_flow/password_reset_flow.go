package businessflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/app/services"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/repository"
	"github.com/plastiqc/accounts/utils"
	"gorm.io/gorm"
)

// PasswordResetFlow handles the admin-mediated password reset workflow.
// Nobody changes a password directly: a request is filed, an admin
// approves or rejects it, and an approved request is completed by an
// admin setting the new password.
type PasswordResetFlow interface {
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.RequestPasswordResetResponse, error)
	RequestReset(ctx context.Context, actor *models.Account, req *dto.RequestPasswordResetRequest, metadata *ClientMetadata) (*dto.RequestPasswordResetResponse, error)
	ListForReview(ctx context.Context, actor *models.Account) (*dto.ListPasswordResetsResponse, error)
	Review(ctx context.Context, actor *models.Account, requestID uint, req *dto.ReviewPasswordResetRequest, metadata *ClientMetadata) (*dto.ReviewPasswordResetResponse, error)
	Complete(ctx context.Context, actor *models.Account, requestID uint, req *dto.CompletePasswordResetRequest, metadata *ClientMetadata) (*dto.CompletePasswordResetResponse, error)
}

// PasswordResetFlowImpl implements the password reset business flow
type PasswordResetFlowImpl struct {
	accountRepo repository.AccountRepository
	resetRepo   repository.PasswordResetRequestRepository
	sessionRepo repository.AccountSessionRepository
	auditRepo   repository.AuditLogRepository
	captchaSvc  services.CaptchaService
	bcryptCost  int
	db          *gorm.DB
}

// NewPasswordResetFlow creates a new password reset flow instance
func NewPasswordResetFlow(
	accountRepo repository.AccountRepository,
	resetRepo repository.PasswordResetRequestRepository,
	sessionRepo repository.AccountSessionRepository,
	auditRepo repository.AuditLogRepository,
	captchaSvc services.CaptchaService,
	bcryptCost int,
	db *gorm.DB,
) PasswordResetFlow {
	return &PasswordResetFlowImpl{
		accountRepo: accountRepo,
		resetRepo:   resetRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		captchaSvc:  captchaSvc,
		bcryptCost:  bcryptCost,
		db:          db,
	}
}

// ForgotPassword files a reset request for an unauthenticated user.
// Only active accounts qualify; the request is attributed to the
// account itself.
func (prf *PasswordResetFlowImpl) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.RequestPasswordResetResponse, error) {
	if ok := prf.captchaSvc.Verify(req.CaptchaChallengeID, req.CaptchaAngle); !ok {
		return nil, NewBusinessError("FORGOT_PASSWORD_CAPTCHA_FAILED", "Captcha verification failed", ErrCaptchaFailed)
	}

	if strings.TrimSpace(req.Reason) == "" {
		return nil, NewBusinessError("FORGOT_PASSWORD_REASON_REQUIRED", "Reason is required", ErrResetReasonRequired)
	}

	account, err := prf.accountRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("FORGOT_PASSWORD_LOOKUP_FAILED", "Failed to look up account", err)
	}
	if account == nil || !utils.IsTrue(account.IsActive) {
		return nil, NewBusinessError("FORGOT_PASSWORD_ACCOUNT_NOT_FOUND", "No active account with that username", ErrAccountNotFound)
	}

	request, err := prf.fileRequest(ctx, account, account, req.Reason, metadata)
	if err != nil {
		return nil, err
	}

	return &dto.RequestPasswordResetResponse{
		Message: "Your reset request has been submitted. An administrator will review it.",
		Request: ToResetRequestDTO(*request),
	}, nil
}

// RequestReset files a reset request for an authenticated caller.
// Only administrators may file on behalf of another account.
func (prf *PasswordResetFlowImpl) RequestReset(ctx context.Context, actor *models.Account, req *dto.RequestPasswordResetRequest, metadata *ClientMetadata) (*dto.RequestPasswordResetResponse, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, NewBusinessError("RESET_REQUEST_REASON_REQUIRED", "Reason is required", ErrResetReasonRequired)
	}

	target := actor
	if req.AccountID != nil && *req.AccountID != actor.ID {
		if !actor.IsAdministrator() {
			return nil, NewBusinessError("RESET_REQUEST_NOT_FOR_SELF", "Only administrators may request resets for other accounts", ErrResetNotForSelf)
		}

		var err error
		target, err = prf.activeAccountByID(ctx, *req.AccountID)
		if err != nil {
			return nil, err
		}
	}

	request, err := prf.fileRequest(ctx, target, actor, req.Reason, metadata)
	if err != nil {
		return nil, err
	}

	return &dto.RequestPasswordResetResponse{
		Message: "Reset request submitted for review.",
		Request: ToResetRequestDTO(*request),
	}, nil
}

// ListForReview returns the admin review queue grouped by status
func (prf *PasswordResetFlowImpl) ListForReview(ctx context.Context, actor *models.Account) (*dto.ListPasswordResetsResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("RESET_LIST_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	pending, err := prf.resetRepo.ListByStatus(ctx, models.ResetStatusPending, 0, 0)
	if err != nil {
		return nil, NewBusinessError("RESET_LIST_FAILED", "Failed to list reset requests", err)
	}
	approved, err := prf.resetRepo.ListByStatus(ctx, models.ResetStatusApproved, 0, 0)
	if err != nil {
		return nil, NewBusinessError("RESET_LIST_FAILED", "Failed to list reset requests", err)
	}
	rejected, err := prf.resetRepo.ListByStatus(ctx, models.ResetStatusRejected, 0, 0)
	if err != nil {
		return nil, NewBusinessError("RESET_LIST_FAILED", "Failed to list reset requests", err)
	}

	response := &dto.ListPasswordResetsResponse{
		Pending:      make([]dto.PasswordResetRequestDTO, 0, len(pending)),
		Approved:     make([]dto.PasswordResetRequestDTO, 0, len(approved)),
		Rejected:     make([]dto.PasswordResetRequestDTO, 0, len(rejected)),
		TotalPending: int64(len(pending)),
	}
	for _, r := range pending {
		response.Pending = append(response.Pending, ToResetRequestDTO(*r))
	}
	for _, r := range approved {
		response.Approved = append(response.Approved, ToResetRequestDTO(*r))
	}
	for _, r := range rejected {
		response.Rejected = append(response.Rejected, ToResetRequestDTO(*r))
	}

	return response, nil
}

// Review moves a PENDING request to APPROVED or REJECTED. A request in
// any other state is reported as not found.
func (prf *PasswordResetFlowImpl) Review(ctx context.Context, actor *models.Account, requestID uint, req *dto.ReviewPasswordResetRequest, metadata *ClientMetadata) (*dto.ReviewPasswordResetResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("RESET_REVIEW_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	if req.Status != models.ResetStatusApproved && req.Status != models.ResetStatusRejected {
		return nil, NewBusinessError("RESET_REVIEW_INVALID_STATUS", "Review status must be APPROVED or REJECTED", ErrInvalidReviewStatus)
	}

	request, err := prf.resetRepo.ByIDAndStatus(ctx, requestID, models.ResetStatusPending)
	if err != nil {
		return nil, NewBusinessError("RESET_REVIEW_LOOKUP_FAILED", "Failed to look up reset request", err)
	}
	if request == nil {
		return nil, NewBusinessError("RESET_REVIEW_NOT_FOUND", "Pending reset request not found", ErrResetRequestNotFound)
	}

	err = repository.WithTransaction(ctx, prf.db, func(txCtx context.Context) error {
		request.Status = req.Status
		request.AdminNotes = req.AdminNotes
		request.ReviewedByID = &actor.ID
		request.ReviewedAt = utils.UTCNowPtr()
		return prf.resetRepo.Update(txCtx, request)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Reset review failed: %s", err.Error())
		_ = prf.logResetAction(ctx, actor, &request.Account, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("RESET_REVIEW_FAILED", "Reset review failed", err)
	}

	verdict := "approved"
	if req.Status == models.ResetStatusRejected {
		verdict = "rejected"
	}
	description := fmt.Sprintf("Password reset request %d %s for %s", request.ID, verdict, request.Account.Username)
	_ = prf.logResetAction(ctx, actor, &request.Account, description, true, nil, metadata)

	return &dto.ReviewPasswordResetResponse{
		Message: fmt.Sprintf("Reset request %s.", verdict),
		Request: ToResetRequestDTO(*request),
	}, nil
}

// Complete sets a new password for an APPROVED request and moves it to
// COMPLETED. All of the target account's sessions are revoked.
func (prf *PasswordResetFlowImpl) Complete(ctx context.Context, actor *models.Account, requestID uint, req *dto.CompletePasswordResetRequest, metadata *ClientMetadata) (*dto.CompletePasswordResetResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("RESET_COMPLETE_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	if req.NewPassword != req.ConfirmPassword {
		return nil, NewBusinessError("RESET_COMPLETE_PASSWORD_MISMATCH", "Passwords do not match", ErrPasswordMismatch)
	}

	request, err := prf.resetRepo.ByIDAndStatus(ctx, requestID, models.ResetStatusApproved)
	if err != nil {
		return nil, NewBusinessError("RESET_COMPLETE_LOOKUP_FAILED", "Failed to look up reset request", err)
	}
	if request == nil {
		return nil, NewBusinessError("RESET_COMPLETE_NOT_FOUND", "Approved reset request not found", ErrResetRequestNotFound)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), prf.bcryptCost)
	if err != nil {
		return nil, NewBusinessError("RESET_COMPLETE_HASH_FAILED", "Failed to hash password", err)
	}

	err = repository.WithTransaction(ctx, prf.db, func(txCtx context.Context) error {
		if err := prf.accountRepo.UpdatePassword(txCtx, request.AccountID, string(hashedPassword)); err != nil {
			return err
		}

		if err := prf.sessionRepo.ExpireAllAccountSessions(txCtx, request.AccountID); err != nil {
			return err
		}

		request.Status = models.ResetStatusCompleted
		return prf.resetRepo.Update(txCtx, request)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Reset completion failed: %s", err.Error())
		_ = prf.logResetAction(ctx, actor, &request.Account, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("RESET_COMPLETE_FAILED", "Reset completion failed", err)
	}

	description := fmt.Sprintf("Password reset request %d completed for %s", request.ID, request.Account.Username)
	_ = prf.logResetAction(ctx, actor, &request.Account, description, true, nil, metadata)

	return &dto.CompletePasswordResetResponse{
		Message: "Password has been reset.",
		Request: ToResetRequestDTO(*request),
	}, nil
}

// Private helper methods

func (prf *PasswordResetFlowImpl) activeAccountByID(ctx context.Context, accountID uint) (*models.Account, error) {
	accounts, err := prf.accountRepo.ByFilter(ctx, models.AccountFilter{ID: &accountID}, "", 1, 0)
	if err != nil {
		return nil, NewBusinessError("RESET_TARGET_LOOKUP_FAILED", "Failed to look up target account", err)
	}
	if len(accounts) == 0 || !utils.IsTrue(accounts[0].IsActive) {
		return nil, NewBusinessError("RESET_TARGET_NOT_FOUND", "Target account not found", ErrAccountNotFound)
	}
	return accounts[0], nil
}

func (prf *PasswordResetFlowImpl) fileRequest(ctx context.Context, target, requestedBy *models.Account, reason string, metadata *ClientMetadata) (*models.PasswordResetRequest, error) {
	request := &models.PasswordResetRequest{
		AccountID:     target.ID,
		RequestedByID: requestedBy.ID,
		Reason:        reason,
		Status:        models.ResetStatusPending,
	}

	err := repository.WithTransaction(ctx, prf.db, func(txCtx context.Context) error {
		return prf.resetRepo.Save(txCtx, request)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Reset request failed: %s", err.Error())
		_ = prf.createAuditLog(ctx, target, models.AuditActionPasswordResetRequest, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("RESET_REQUEST_FAILED", "Failed to file reset request", err)
	}

	description := fmt.Sprintf("Password reset requested for %s by %s", target.Username, requestedBy.Username)
	_ = prf.createAuditLog(ctx, target, models.AuditActionPasswordResetRequest, description, true, nil, metadata)

	// The DTO mapper reads the preloaded relations
	request.Account = *target
	request.RequestedBy = *requestedBy

	return request, nil
}

func (prf *PasswordResetFlowImpl) logResetAction(ctx context.Context, actor *models.Account, target *models.Account, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	meta := metadata
	if meta == nil {
		meta = NewClientMetadata("127.0.0.1", "")
	}
	meta.AddAdditional("reviewed_by", actor.Username)

	return prf.createAuditLog(ctx, target, models.AuditActionPasswordChange, description, success, errorMsg, meta)
}

func (prf *PasswordResetFlowImpl) createAuditLog(ctx context.Context, account *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var accountID *uint
	if account != nil {
		accountID = &account.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		AccountID:    accountID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return prf.auditRepo.Save(ctx, audit)
}
