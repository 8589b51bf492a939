package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/repository"
	"github.com/plastiqc/accounts/utils"
	"gorm.io/gorm"
)

// ProfileFlow handles profile viewing, editing, and self-service deletion
type ProfileFlow interface {
	GetProfile(ctx context.Context, account *models.Account) (*dto.GetProfileResponse, error)
	UpdateProfile(ctx context.Context, account *models.Account, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UpdateProfileResponse, error)
	DeleteAccount(ctx context.Context, account *models.Account, req *dto.DeleteAccountRequest, metadata *ClientMetadata) (*dto.DeleteAccountResponse, error)
}

// ProfileFlowImpl implements the profile business flow
type ProfileFlowImpl struct {
	accountRepo repository.AccountRepository
	sessionRepo repository.AccountSessionRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewProfileFlow creates a new profile flow instance
func NewProfileFlow(
	accountRepo repository.AccountRepository,
	sessionRepo repository.AccountSessionRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) ProfileFlow {
	return &ProfileFlowImpl{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// GetProfile returns the caller's profile together with any staged changes
func (pf *ProfileFlowImpl) GetProfile(ctx context.Context, account *models.Account) (*dto.GetProfileResponse, error) {
	pending, err := account.PendingChanges()
	if err != nil {
		return nil, NewBusinessError("PROFILE_PENDING_DECODE_FAILED", "Failed to decode pending changes", err)
	}

	return &dto.GetProfileResponse{
		Account:        ToAccountDTO(*account),
		PendingChanges: pending,
	}, nil
}

// UpdateProfile applies a profile edit. Administrators always apply
// directly. For everyone else, an edit that touches the company role or
// section stages the ENTIRE changed field set for admin approval and
// leaves the persisted profile untouched until a decision is made.
func (pf *ProfileFlowImpl) UpdateProfile(ctx context.Context, account *models.Account, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UpdateProfileResponse, error) {
	if err := pf.validateUpdateRequest(req); err != nil {
		return nil, NewBusinessError("PROFILE_UPDATE_VALIDATION_FAILED", "Profile update validation failed", err)
	}

	changes := collectProfileChanges(account, req)
	if len(changes) == 0 {
		return nil, NewBusinessError("PROFILE_NO_CHANGES", "No profile changes submitted", ErrNoProfileChanges)
	}

	roleOrSectionChanged := false
	if _, ok := changes[models.ProfileFieldCompanyRole]; ok {
		roleOrSectionChanged = true
	}
	if _, ok := changes[models.ProfileFieldSection]; ok {
		roleOrSectionChanged = true
	}

	needsApproval := roleOrSectionChanged && !account.IsAdministrator()

	var response *dto.UpdateProfileResponse

	err := repository.WithTransaction(ctx, pf.db, func(txCtx context.Context) error {
		if needsApproval {
			return pf.stageChanges(txCtx, account, changes)
		}
		return pf.applyChanges(txCtx, account, changes)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Profile update failed: %s", err.Error())
		_ = pf.createAuditLog(ctx, account, models.AuditActionProfileUpdate, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Profile update failed", err)
	}

	fieldNames := sortedFieldNames(changes)

	if needsApproval {
		description := fmt.Sprintf("Profile changes staged for approval: %s", strings.Join(fieldNames, ", "))
		_ = pf.createAuditLog(ctx, account, models.AuditActionProfileUpdate, description, true, nil, metadata)

		response = &dto.UpdateProfileResponse{
			Message:          "Your changes require admin approval and have been submitted for review.",
			ApprovalRequired: true,
			Account:          ToAccountDTO(*account),
			PendingChanges:   changes,
		}
	} else {
		description := fmt.Sprintf("Profile updated: %s", strings.Join(fieldNames, ", "))
		_ = pf.createAuditLog(ctx, account, models.AuditActionProfileUpdate, description, true, nil, metadata)

		response = &dto.UpdateProfileResponse{
			Message:          "Profile updated successfully.",
			ApprovalRequired: false,
			Account:          ToAccountDTO(*account),
		}
	}

	return response, nil
}

// DeleteAccount soft-deletes the caller's account and revokes its sessions
func (pf *ProfileFlowImpl) DeleteAccount(ctx context.Context, account *models.Account, req *dto.DeleteAccountRequest, metadata *ClientMetadata) (*dto.DeleteAccountResponse, error) {
	if !req.Confirm {
		return nil, NewBusinessError("ACCOUNT_DELETE_NOT_CONFIRMED", "Deletion must be confirmed", ErrValidation)
	}

	err := repository.WithTransaction(ctx, pf.db, func(txCtx context.Context) error {
		account.IsActive = utils.ToPtr(false)
		if err := pf.accountRepo.Update(txCtx, account); err != nil {
			return err
		}
		return pf.sessionRepo.ExpireAllAccountSessions(txCtx, account.ID)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Account deactivation failed: %s", err.Error())
		_ = pf.createAuditLog(ctx, account, models.AuditActionAccountDelete, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ACCOUNT_DELETE_FAILED", "Account deactivation failed", err)
	}

	description := "Account deactivated at owner's request"
	if req.Reason != nil && *req.Reason != "" {
		description = fmt.Sprintf("Account deactivated at owner's request: %s", *req.Reason)
	}
	_ = pf.createAuditLog(ctx, account, models.AuditActionAccountDelete, description, true, nil, metadata)

	return &dto.DeleteAccountResponse{Message: "Your account has been deactivated."}, nil
}

// Private helper methods

func (pf *ProfileFlowImpl) validateUpdateRequest(req *dto.UpdateProfileRequest) error {
	if req.PhoneNumber != nil && *req.PhoneNumber != "" {
		if !models.PhoneNumberPattern.MatchString(*req.PhoneNumber) {
			return ErrInvalidPhoneNumber
		}
	}
	if !models.ValidRoles[req.CompanyRole] {
		return ErrInvalidRole
	}
	if !models.ValidSections[req.Section] {
		return ErrInvalidSection
	}
	return nil
}

// collectProfileChanges diffs the request against the persisted profile
// and returns only the fields that actually differ.
func collectProfileChanges(account *models.Account, req *dto.UpdateProfileRequest) map[string]string {
	changes := make(map[string]string)

	if req.FirstName != account.FirstName {
		changes[models.ProfileFieldFirstName] = req.FirstName
	}
	if req.LastName != account.LastName {
		changes[models.ProfileFieldLastName] = req.LastName
	}
	if req.Email != account.Email {
		changes[models.ProfileFieldEmail] = req.Email
	}

	currentPhone := ""
	if account.PhoneNumber != nil {
		currentPhone = *account.PhoneNumber
	}
	requestedPhone := ""
	if req.PhoneNumber != nil {
		requestedPhone = *req.PhoneNumber
	}
	if requestedPhone != currentPhone {
		changes[models.ProfileFieldPhoneNumber] = requestedPhone
	}

	if req.CompanyRole != account.CompanyRole {
		changes[models.ProfileFieldCompanyRole] = req.CompanyRole
	}
	if req.Section != account.Section {
		changes[models.ProfileFieldSection] = req.Section
	}

	return changes
}

func (pf *ProfileFlowImpl) stageChanges(ctx context.Context, account *models.Account, changes map[string]string) error {
	data, err := json.Marshal(changes)
	if err != nil {
		return err
	}

	account.ProfileUpdatePending = utils.ToPtr(true)
	account.PendingProfileData = data
	account.PendingProfileFields = pq.StringArray(sortedFieldNames(changes))

	return pf.accountRepo.Update(ctx, account)
}

func (pf *ProfileFlowImpl) applyChanges(ctx context.Context, account *models.Account, changes map[string]string) error {
	applyProfileFields(account, changes)
	return pf.accountRepo.Update(ctx, account)
}

// applyProfileFields writes staged or direct changes onto the account.
// Only the stageable field set is honored, anything else is dropped.
func applyProfileFields(account *models.Account, changes map[string]string) {
	for field, value := range changes {
		switch field {
		case models.ProfileFieldFirstName:
			account.FirstName = value
		case models.ProfileFieldLastName:
			account.LastName = value
		case models.ProfileFieldEmail:
			account.Email = value
		case models.ProfileFieldPhoneNumber:
			if value == "" {
				account.PhoneNumber = nil
			} else {
				account.PhoneNumber = utils.ToPtr(value)
			}
		case models.ProfileFieldCompanyRole:
			account.CompanyRole = value
		case models.ProfileFieldSection:
			account.Section = value
		}
	}
}

func sortedFieldNames(changes map[string]string) []string {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (pf *ProfileFlowImpl) createAuditLog(ctx context.Context, account *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	return pf.auditRepo.Save(ctx, audit)
}
