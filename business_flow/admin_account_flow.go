package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/repository"
	"github.com/plastiqc/accounts/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// AdminAccountFlow provides the administrative account management use
// cases: approval queue, profile-change review, activity views, and
// dashboard statistics. Every operation requires administrator
// privilege.
type AdminAccountFlow interface {
	ListAccounts(ctx context.Context, actor *models.Account, req *dto.AdminListAccountsRequest) (*dto.AdminListAccountsResponse, error)
	ApprovalQueue(ctx context.Context, actor *models.Account) (*dto.AdminApprovalQueueResponse, error)
	ApproveAccount(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error)
	RejectAccount(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error)
	BulkApproveAccounts(ctx context.Context, actor *models.Account, req *dto.AdminBulkActionRequest, metadata *ClientMetadata) (*dto.AdminBulkActionResponse, error)
	BulkRejectAccounts(ctx context.Context, actor *models.Account, req *dto.AdminBulkActionRequest, metadata *ClientMetadata) (*dto.AdminBulkActionResponse, error)
	ActivateAccount(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error)
	DeactivateAccount(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error)
	ListProfileUpdates(ctx context.Context, actor *models.Account) (*dto.AdminProfileApprovalListResponse, error)
	ApproveProfileUpdate(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error)
	RejectProfileUpdate(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error)
	UserActivity(ctx context.Context, actor *models.Account, accountID uint) (*dto.AdminUserActivityResponse, error)
	SystemActivity(ctx context.Context, actor *models.Account, req *dto.AdminSystemActivityRequest) (*dto.AdminSystemActivityResponse, error)
	ExportActivity(ctx context.Context, actor *models.Account, req *dto.AdminSystemActivityRequest) (string, []byte, error)
	Dashboard(ctx context.Context, actor *models.Account) (*dto.AdminDashboardResponse, error)
}

// AdminAccountFlowImpl implements the admin account management flow
type AdminAccountFlowImpl struct {
	accountRepo repository.AccountRepository
	sessionRepo repository.AccountSessionRepository
	resetRepo   repository.PasswordResetRequestRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewAdminAccountFlow creates a new admin account flow instance
func NewAdminAccountFlow(
	accountRepo repository.AccountRepository,
	sessionRepo repository.AccountSessionRepository,
	resetRepo repository.PasswordResetRequestRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) AdminAccountFlow {
	return &AdminAccountFlowImpl{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		resetRepo:   resetRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

const defaultListLimit = 20

// ListAccounts returns a filtered, paginated account listing
func (af *AdminAccountFlowImpl) ListAccounts(ctx context.Context, actor *models.Account, req *dto.AdminListAccountsRequest) (*dto.AdminListAccountsResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_LIST_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	filter, err := listFilterFromRequest(req)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LIST_INVALID_FILTER", "Invalid account filter", err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultListLimit
	}

	accounts, err := af.accountRepo.ByFilter(ctx, filter, "created_at DESC", limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LIST_FAILED", "Failed to list accounts", err)
	}

	total, err := af.accountRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LIST_COUNT_FAILED", "Failed to count accounts", err)
	}

	response := &dto.AdminListAccountsResponse{
		Message:  "Accounts retrieved successfully",
		Accounts: make([]dto.AccountDTO, 0, len(accounts)),
		Total:    total,
		Page:     page,
		Limit:    limit,
	}
	for _, a := range accounts {
		response.Accounts = append(response.Accounts, ToAccountDTO(*a))
	}

	return response, nil
}

// ApprovalQueue lists accounts awaiting their first approval alongside
// recently approved ones
func (af *AdminAccountFlowImpl) ApprovalQueue(ctx context.Context, actor *models.Account) (*dto.AdminApprovalQueueResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_QUEUE_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	pendingFilter := models.AccountFilter{
		IsActive:   utils.ToPtr(true),
		IsApproved: utils.ToPtr(false),
	}
	approvedFilter := models.AccountFilter{
		IsApproved: utils.ToPtr(true),
	}

	pending, err := af.accountRepo.ByFilter(ctx, pendingFilter, "created_at ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("ADMIN_QUEUE_FAILED", "Failed to load approval queue", err)
	}
	approved, err := af.accountRepo.ByFilter(ctx, approvedFilter, "created_at DESC", defaultListLimit, 0)
	if err != nil {
		return nil, NewBusinessError("ADMIN_QUEUE_FAILED", "Failed to load approval queue", err)
	}

	totalApproved, err := af.accountRepo.Count(ctx, approvedFilter)
	if err != nil {
		return nil, NewBusinessError("ADMIN_QUEUE_FAILED", "Failed to load approval queue", err)
	}

	response := &dto.AdminApprovalQueueResponse{
		Pending:       make([]dto.AccountDTO, 0, len(pending)),
		Approved:      make([]dto.AccountDTO, 0, len(approved)),
		TotalPending:  int64(len(pending)),
		TotalApproved: totalApproved,
	}
	for _, a := range pending {
		response.Pending = append(response.Pending, ToAccountDTO(*a))
	}
	for _, a := range approved {
		response.Approved = append(response.Approved, ToAccountDTO(*a))
	}

	return response, nil
}

// ApproveAccount grants an account its initial approval. Approving an
// already-approved account is a no-op success and does not overwrite
// the original approval metadata.
func (af *AdminAccountFlowImpl) ApproveAccount(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_APPROVE_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	account, err := af.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if utils.IsTrue(account.IsApproved) {
		return &dto.AdminAccountActionResponse{
			Message: fmt.Sprintf("Account %s is already approved.", account.Username),
			Account: ToAccountDTO(*account),
		}, nil
	}

	err = repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		account.IsApproved = utils.ToPtr(true)
		account.ApprovedByID = &actor.ID
		account.ApprovedAt = utils.UTCNowPtr()
		return af.accountRepo.Update(txCtx, account)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Account approval failed: %s", err.Error())
		_ = af.logAdminAction(ctx, actor, account, models.AuditActionAccountCreate, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_APPROVE_FAILED", "Account approval failed", err)
	}

	description := fmt.Sprintf("Account %s approved by %s", account.Username, actor.Username)
	_ = af.logAdminAction(ctx, actor, account, models.AuditActionAccountCreate, description, true, nil, metadata)

	return &dto.AdminAccountActionResponse{
		Message: fmt.Sprintf("Account %s approved.", account.Username),
		Account: ToAccountDTO(*account),
	}, nil
}

// RejectAccount deactivates an account that is still awaiting approval
func (af *AdminAccountFlowImpl) RejectAccount(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_REJECT_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	account, err := af.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !account.IsPendingApproval() {
		return nil, NewBusinessError("ADMIN_REJECT_NOT_PENDING", "Account is not pending approval", ErrAccountNotPending)
	}

	err = repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		account.IsActive = utils.ToPtr(false)
		return af.accountRepo.Update(txCtx, account)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Account rejection failed: %s", err.Error())
		_ = af.logAdminAction(ctx, actor, account, models.AuditActionAccountDelete, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_REJECT_FAILED", "Account rejection failed", err)
	}

	description := fmt.Sprintf("Registration for %s rejected by %s", account.Username, actor.Username)
	_ = af.logAdminAction(ctx, actor, account, models.AuditActionAccountDelete, description, true, nil, metadata)

	return &dto.AdminAccountActionResponse{
		Message: fmt.Sprintf("Registration for %s rejected.", account.Username),
		Account: ToAccountDTO(*account),
	}, nil
}

// BulkApproveAccounts approves every listed account that is still
// unapproved in one statement and reports how many changed.
// Already-approved accounts are skipped, so the count can be lower than
// the number of IDs submitted.
func (af *AdminAccountFlowImpl) BulkApproveAccounts(ctx context.Context, actor *models.Account, req *dto.AdminBulkActionRequest, metadata *ClientMetadata) (*dto.AdminBulkActionResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_BULK_APPROVE_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	var affected int64
	err := repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		var err error
		affected, err = af.accountRepo.BulkApprove(txCtx, req.AccountIDs, actor.ID)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Bulk account approval failed: %s", err.Error())
		_ = af.logAdminAction(ctx, actor, nil, models.AuditActionAccountCreate, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_BULK_APPROVE_FAILED", "Bulk account approval failed", err)
	}

	description := fmt.Sprintf("%d accounts approved by %s", affected, actor.Username)
	_ = af.logAdminAction(ctx, actor, nil, models.AuditActionAccountCreate, description, true, nil, metadata)

	return &dto.AdminBulkActionResponse{
		Message:  fmt.Sprintf("%d accounts were approved.", affected),
		Affected: affected,
	}, nil
}

// BulkRejectAccounts deactivates every listed account that is still
// pending approval in one statement and reports how many changed.
// Approved or already-inactive accounts are skipped.
func (af *AdminAccountFlowImpl) BulkRejectAccounts(ctx context.Context, actor *models.Account, req *dto.AdminBulkActionRequest, metadata *ClientMetadata) (*dto.AdminBulkActionResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_BULK_REJECT_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	var affected int64
	err := repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		var err error
		affected, err = af.accountRepo.BulkReject(txCtx, req.AccountIDs)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Bulk account rejection failed: %s", err.Error())
		_ = af.logAdminAction(ctx, actor, nil, models.AuditActionAccountDelete, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_BULK_REJECT_FAILED", "Bulk account rejection failed", err)
	}

	description := fmt.Sprintf("%d pending registrations rejected by %s", affected, actor.Username)
	_ = af.logAdminAction(ctx, actor, nil, models.AuditActionAccountDelete, description, true, nil, metadata)

	return &dto.AdminBulkActionResponse{
		Message:  fmt.Sprintf("%d registrations were rejected.", affected),
		Affected: affected,
	}, nil
}

// ActivateAccount reactivates a previously deactivated account
func (af *AdminAccountFlowImpl) ActivateAccount(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_ACTIVATE_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	account, err := af.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if utils.IsTrue(account.IsActive) {
		return nil, NewBusinessError("ADMIN_ACTIVATE_NOT_INACTIVE", "Account is not inactive", ErrAccountNotInactive)
	}

	err = repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		account.IsActive = utils.ToPtr(true)
		return af.accountRepo.Update(txCtx, account)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Account activation failed: %s", err.Error())
		_ = af.logAdminAction(ctx, actor, account, models.AuditActionAccountCreate, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_ACTIVATE_FAILED", "Account activation failed", err)
	}

	description := fmt.Sprintf("Account %s reactivated by %s", account.Username, actor.Username)
	_ = af.logAdminAction(ctx, actor, account, models.AuditActionAccountCreate, description, true, nil, metadata)

	return &dto.AdminAccountActionResponse{
		Message: fmt.Sprintf("Account %s reactivated.", account.Username),
		Account: ToAccountDTO(*account),
	}, nil
}

// DeactivateAccount soft-deletes an account and revokes its sessions
func (af *AdminAccountFlowImpl) DeactivateAccount(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_DEACTIVATE_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	account, err := af.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	err = repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		account.IsActive = utils.ToPtr(false)
		if err := af.accountRepo.Update(txCtx, account); err != nil {
			return err
		}
		return af.sessionRepo.ExpireAllAccountSessions(txCtx, account.ID)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Account deactivation failed: %s", err.Error())
		_ = af.logAdminAction(ctx, actor, account, models.AuditActionAccountDelete, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_DEACTIVATE_FAILED", "Account deactivation failed", err)
	}

	description := fmt.Sprintf("Account %s deactivated by %s", account.Username, actor.Username)
	_ = af.logAdminAction(ctx, actor, account, models.AuditActionAccountDelete, description, true, nil, metadata)

	return &dto.AdminAccountActionResponse{
		Message: fmt.Sprintf("Account %s deactivated.", account.Username),
		Account: ToAccountDTO(*account),
	}, nil
}

// ListProfileUpdates returns accounts with staged profile changes
func (af *AdminAccountFlowImpl) ListProfileUpdates(ctx context.Context, actor *models.Account) (*dto.AdminProfileApprovalListResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_PROFILE_LIST_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	filter := models.AccountFilter{ProfileUpdatePending: utils.ToPtr(true)}
	accounts, err := af.accountRepo.ByFilter(ctx, filter, "updated_at ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("ADMIN_PROFILE_LIST_FAILED", "Failed to list pending profile updates", err)
	}

	response := &dto.AdminProfileApprovalListResponse{
		Pending:      make([]dto.PendingProfileUpdateDTO, 0, len(accounts)),
		TotalPending: int64(len(accounts)),
	}
	for _, a := range accounts {
		changes, err := a.PendingChanges()
		if err != nil {
			return nil, NewBusinessError("ADMIN_PROFILE_LIST_DECODE_FAILED", "Failed to decode pending changes", err)
		}
		response.Pending = append(response.Pending, dto.PendingProfileUpdateDTO{
			Account:        ToAccountDTO(*a),
			PendingChanges: changes,
		})
	}

	return response, nil
}

// ApproveProfileUpdate applies an account's staged profile changes and
// clears the staging area. Only the known profile fields are applied.
func (af *AdminAccountFlowImpl) ApproveProfileUpdate(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_PROFILE_APPROVE_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	account, err := af.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !utils.IsTrue(account.ProfileUpdatePending) || len(account.PendingProfileData) == 0 {
		return nil, NewBusinessError("ADMIN_PROFILE_APPROVE_NO_PENDING", "No pending profile update", ErrNoPendingProfileData)
	}

	changes, err := account.PendingChanges()
	if err != nil {
		return nil, NewBusinessError("ADMIN_PROFILE_APPROVE_DECODE_FAILED", "Failed to decode pending changes", err)
	}

	// Drop anything outside the stageable field set before applying
	for field := range changes {
		if !models.StageableProfileFields[field] {
			delete(changes, field)
		}
	}

	err = repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		applyProfileFields(account, changes)
		clearStagedProfile(account)
		return af.accountRepo.Update(txCtx, account)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Profile approval failed: %s", err.Error())
		_ = af.logAdminAction(ctx, actor, account, models.AuditActionProfileUpdate, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_PROFILE_APPROVE_FAILED", "Profile approval failed", err)
	}

	fieldNames := sortedFieldNames(changes)
	description := fmt.Sprintf("Profile changes for %s approved by %s: %s", account.Username, actor.Username, strings.Join(fieldNames, ", "))
	_ = af.logAdminAction(ctx, actor, account, models.AuditActionProfileUpdate, description, true, nil, metadata)

	return &dto.AdminAccountActionResponse{
		Message: fmt.Sprintf("Profile changes for %s approved.", account.Username),
		Account: ToAccountDTO(*account),
	}, nil
}

// RejectProfileUpdate discards an account's staged profile changes
func (af *AdminAccountFlowImpl) RejectProfileUpdate(ctx context.Context, actor *models.Account, accountID uint, metadata *ClientMetadata) (*dto.AdminAccountActionResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_PROFILE_REJECT_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	account, err := af.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !utils.IsTrue(account.ProfileUpdatePending) || len(account.PendingProfileData) == 0 {
		return nil, NewBusinessError("ADMIN_PROFILE_REJECT_NO_PENDING", "No pending profile update", ErrNoPendingProfileData)
	}

	err = repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		clearStagedProfile(account)
		return af.accountRepo.Update(txCtx, account)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Profile rejection failed: %s", err.Error())
		_ = af.logAdminAction(ctx, actor, account, models.AuditActionProfileUpdate, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ADMIN_PROFILE_REJECT_FAILED", "Profile rejection failed", err)
	}

	description := fmt.Sprintf("Profile changes for %s rejected by %s", account.Username, actor.Username)
	_ = af.logAdminAction(ctx, actor, account, models.AuditActionProfileUpdate, description, true, nil, metadata)

	return &dto.AdminAccountActionResponse{
		Message: fmt.Sprintf("Profile changes for %s rejected.", account.Username),
		Account: ToAccountDTO(*account),
	}, nil
}

// UserActivity shows one account's recent audit entries with per-action counts
func (af *AdminAccountFlowImpl) UserActivity(ctx context.Context, actor *models.Account, accountID uint) (*dto.AdminUserActivityResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_ACTIVITY_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	account, err := af.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	entries, err := af.auditRepo.ListByAccount(ctx, account.ID, utils.UserActivityLimit, 0)
	if err != nil {
		return nil, NewBusinessError("ADMIN_ACTIVITY_FAILED", "Failed to load account activity", err)
	}

	counts, err := af.auditRepo.ActionCountsByAccount(ctx, account.ID)
	if err != nil {
		return nil, NewBusinessError("ADMIN_ACTIVITY_FAILED", "Failed to load account activity", err)
	}

	var totalActions int64
	for _, c := range counts {
		totalActions += c
	}

	response := &dto.AdminUserActivityResponse{
		Account:      ToAccountDTO(*account),
		Entries:      make([]dto.AuditLogDTO, 0, len(entries)),
		ActionCounts: counts,
		TotalActions: totalActions,
	}
	for _, e := range entries {
		response.Entries = append(response.Entries, ToAuditLogDTO(*e))
	}

	return response, nil
}

// SystemActivity shows recent audit entries across all accounts,
// optionally filtered by action kind, account, and date range
func (af *AdminAccountFlowImpl) SystemActivity(ctx context.Context, actor *models.Account, req *dto.AdminSystemActivityRequest) (*dto.AdminSystemActivityResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_SYSTEM_ACTIVITY_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	filter, limit, err := activityFilterFromRequest(req)
	if err != nil {
		return nil, NewBusinessError("ADMIN_SYSTEM_ACTIVITY_INVALID_FILTER", "Invalid activity filter", err)
	}

	entries, err := af.auditRepo.ByFilter(ctx, filter, "created_at DESC", limit, 0)
	if err != nil {
		return nil, NewBusinessError("ADMIN_SYSTEM_ACTIVITY_FAILED", "Failed to load system activity", err)
	}

	total, err := af.auditRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("ADMIN_SYSTEM_ACTIVITY_FAILED", "Failed to load system activity", err)
	}

	response := &dto.AdminSystemActivityResponse{
		Entries: make([]dto.AuditLogDTO, 0, len(entries)),
		Total:   total,
	}
	for _, e := range entries {
		response.Entries = append(response.Entries, ToAuditLogDTO(*e))
	}

	return response, nil
}

// ExportActivity builds an Excel workbook from the filtered audit trail
func (af *AdminAccountFlowImpl) ExportActivity(ctx context.Context, actor *models.Account, req *dto.AdminSystemActivityRequest) (string, []byte, error) {
	if !actor.IsAdministrator() {
		return "", nil, NewBusinessError("ADMIN_EXPORT_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	filter, limit, err := activityFilterFromRequest(req)
	if err != nil {
		return "", nil, NewBusinessError("ADMIN_EXPORT_INVALID_FILTER", "Invalid activity filter", err)
	}

	entries, err := af.auditRepo.ByFilter(ctx, filter, "created_at DESC", limit, 0)
	if err != nil {
		return "", nil, NewBusinessError("ADMIN_EXPORT_FETCH_FAILED", "Failed to load system activity", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := xl.GetSheetName(0)
	header := []string{"id", "account_id", "username", "action", "description", "ip_address", "user_agent", "success", "error_message", "created_at"}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError("ADMIN_EXPORT_WRITE_FAILED", "Failed to write export header", err)
	}

	for i, e := range entries {
		accountID := ""
		if e.AccountID != nil {
			accountID = strconv.FormatUint(uint64(*e.AccountID), 10)
		}
		username := ""
		if e.Account != nil {
			username = e.Account.Username
		}
		description := ""
		if e.Description != nil {
			description = *e.Description
		}
		ip := ""
		if e.IPAddress != nil {
			ip = *e.IPAddress
		}
		ua := ""
		if e.UserAgent != nil {
			ua = *e.UserAgent
		}
		errMsg := ""
		if e.ErrorMessage != nil {
			errMsg = *e.ErrorMessage
		}

		record := []string{
			strconv.FormatUint(uint64(e.ID), 10),
			accountID,
			username,
			e.Action,
			description,
			ip,
			ua,
			strconv.FormatBool(utils.IsTrue(e.Success)),
			errMsg,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}

		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", nil, NewBusinessError("ADMIN_EXPORT_WRITE_FAILED", "Failed to address export row", err)
		}
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return "", nil, NewBusinessError("ADMIN_EXPORT_WRITE_FAILED", "Failed to write export row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("ADMIN_EXPORT_ENCODE_FAILED", "Failed to encode export workbook", err)
	}

	filename := fmt.Sprintf("activity_export_%s.xlsx", utils.UTCNowFormat("20060102_150405"))
	return filename, buf.Bytes(), nil
}

// Dashboard assembles the admin dashboard statistics
func (af *AdminAccountFlowImpl) Dashboard(ctx context.Context, actor *models.Account) (*dto.AdminDashboardResponse, error) {
	if !actor.IsAdministrator() {
		return nil, NewBusinessError("ADMIN_DASHBOARD_ADMIN_REQUIRED", "Administrator privilege required", ErrAdminRequired)
	}

	total, err := af.accountRepo.Count(ctx, models.AccountFilter{})
	if err != nil {
		return nil, NewBusinessError("ADMIN_DASHBOARD_FAILED", "Failed to assemble dashboard", err)
	}

	pendingApprovals, err := af.accountRepo.Count(ctx, models.AccountFilter{
		IsActive:   utils.ToPtr(true),
		IsApproved: utils.ToPtr(false),
	})
	if err != nil {
		return nil, NewBusinessError("ADMIN_DASHBOARD_FAILED", "Failed to assemble dashboard", err)
	}

	approved, err := af.accountRepo.Count(ctx, models.AccountFilter{IsApproved: utils.ToPtr(true)})
	if err != nil {
		return nil, NewBusinessError("ADMIN_DASHBOARD_FAILED", "Failed to assemble dashboard", err)
	}

	pendingResets, err := af.resetRepo.Count(ctx, models.PasswordResetRequestFilter{
		Status: utils.ToPtr(models.ResetStatusPending),
	})
	if err != nil {
		return nil, NewBusinessError("ADMIN_DASHBOARD_FAILED", "Failed to assemble dashboard", err)
	}

	roleDist, err := af.accountRepo.RoleDistribution(ctx)
	if err != nil {
		return nil, NewBusinessError("ADMIN_DASHBOARD_FAILED", "Failed to assemble dashboard", err)
	}

	sectionDist, err := af.accountRepo.SectionDistribution(ctx)
	if err != nil {
		return nil, NewBusinessError("ADMIN_DASHBOARD_FAILED", "Failed to assemble dashboard", err)
	}

	since := utils.UTCNowAdd(-utils.RecentRegistrationWindow)
	recent, err := af.accountRepo.ByFilter(ctx, models.AccountFilter{CreatedAfter: &since}, "created_at DESC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("ADMIN_DASHBOARD_FAILED", "Failed to assemble dashboard", err)
	}

	response := &dto.AdminDashboardResponse{
		TotalAccounts:         total,
		PendingApprovals:      pendingApprovals,
		ApprovedAccounts:      approved,
		PendingPasswordResets: pendingResets,
		RoleDistribution:      roleDist,
		SectionDistribution:   sectionDist,
		RecentRegistrations:   make([]dto.AccountDTO, 0, len(recent)),
	}
	for _, a := range recent {
		response.RecentRegistrations = append(response.RecentRegistrations, ToAccountDTO(*a))
	}

	return response, nil
}

// Private helper methods

func (af *AdminAccountFlowImpl) accountByID(ctx context.Context, accountID uint) (*models.Account, error) {
	account, err := af.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("ADMIN_ACCOUNT_LOOKUP_FAILED", "Failed to look up account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ADMIN_ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}
	return account, nil
}

func listFilterFromRequest(req *dto.AdminListAccountsRequest) (models.AccountFilter, error) {
	filter := models.AccountFilter{}

	switch req.Status {
	case "", "all":
	case "pending":
		filter.IsActive = utils.ToPtr(true)
		filter.IsApproved = utils.ToPtr(false)
	case "approved":
		filter.IsApproved = utils.ToPtr(true)
	case "inactive":
		filter.IsActive = utils.ToPtr(false)
	default:
		return filter, ErrInvalidStatusFilter
	}

	if req.Role != "" {
		if !models.ValidRoles[req.Role] {
			return filter, ErrInvalidRole
		}
		filter.CompanyRole = &req.Role
	}
	if req.Section != "" {
		if !models.ValidSections[req.Section] {
			return filter, ErrInvalidSection
		}
		filter.Section = &req.Section
	}

	return filter, nil
}

func activityFilterFromRequest(req *dto.AdminSystemActivityRequest) (models.AuditLogFilter, int, error) {
	filter := models.AuditLogFilter{}

	if req.Action != "" {
		if !models.IsValidAuditAction(req.Action) {
			return filter, 0, ErrInvalidActionKind
		}
		filter.Action = &req.Action
	}
	if req.AccountID != 0 {
		filter.AccountID = &req.AccountID
	}

	if req.DateFrom != "" {
		from, err := time.Parse("2006-01-02", req.DateFrom)
		if err != nil {
			return filter, 0, ErrInvalidDateRange
		}
		filter.CreatedAfter = &from
	}
	if req.DateTo != "" {
		to, err := time.Parse("2006-01-02", req.DateTo)
		if err != nil {
			return filter, 0, ErrInvalidDateRange
		}
		// Inclusive end of day
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.CreatedBefore = &end
	}
	if filter.CreatedAfter != nil && filter.CreatedBefore != nil && filter.CreatedAfter.After(*filter.CreatedBefore) {
		return filter, 0, ErrInvalidDateRange
	}

	limit := req.Limit
	if limit < 1 {
		limit = utils.SystemActivityLimit
	}

	return filter, limit, nil
}

func clearStagedProfile(account *models.Account) {
	account.ProfileUpdatePending = utils.ToPtr(false)
	account.PendingProfileData = nil
	account.PendingProfileFields = nil
}

func (af *AdminAccountFlowImpl) logAdminAction(ctx context.Context, actor *models.Account, target *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	meta := metadata
	if meta == nil {
		meta = NewClientMetadata("127.0.0.1", "")
	}
	meta.AddAdditional("performed_by", actor.Username)

	var accountID *uint
	if target != nil {
		accountID = &target.ID
	}

	audit := &models.AuditLog{
		AccountID:    accountID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &meta.IPAddress,
		UserAgent:    &meta.UserAgent,
		ErrorMessage: errorMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return af.auditRepo.Save(ctx, audit)
}
