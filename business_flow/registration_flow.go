// Package businessflow contains the core business logic and use cases for account workflows
package businessflow

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/app/services"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/repository"
	"github.com/plastiqc/accounts/utils"
	"gorm.io/gorm"
)

// RegistrationFlow handles self-service account registration
type RegistrationFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error)
	InitCaptcha(ctx context.Context) (*dto.CaptchaInitResponse, error)
}

// RegistrationFlowImpl implements the registration business flow
type RegistrationFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	captchaSvc  services.CaptchaService
	bcryptCost  int
	db          *gorm.DB
}

// NewRegistrationFlow creates a new registration flow instance
func NewRegistrationFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	captchaSvc services.CaptchaService,
	bcryptCost int,
	db *gorm.DB,
) RegistrationFlow {
	return &RegistrationFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		captchaSvc:  captchaSvc,
		bcryptCost:  bcryptCost,
		db:          db,
	}
}

// InitCaptcha returns a fresh rotate captcha challenge for the registration form
func (rf *RegistrationFlowImpl) InitCaptcha(ctx context.Context) (*dto.CaptchaInitResponse, error) {
	challenge, err := rf.captchaSvc.Generate()
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_INIT_FAILED", "Captcha init failed", err)
	}

	return &dto.CaptchaInitResponse{
		ChallengeID:       challenge.ID,
		MasterImageBase64: challenge.MasterImageBase64,
		ThumbImageBase64:  challenge.ThumbImageBase64,
	}, nil
}

// Register creates an account that is active but awaits admin approval
func (rf *RegistrationFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error) {
	if ok := rf.captchaSvc.Verify(req.CaptchaChallengeID, req.CaptchaAngle); !ok {
		return nil, NewBusinessError("REGISTRATION_CAPTCHA_FAILED", "Captcha verification failed", ErrCaptchaFailed)
	}

	if err := rf.validateRegisterRequest(ctx, req); err != nil {
		return nil, NewBusinessError("REGISTRATION_VALIDATION_FAILED", "Registration validation failed", err)
	}

	var account *models.Account

	err := repository.WithTransaction(ctx, rf.db, func(txCtx context.Context) error {
		var err error
		account, err = rf.createAccount(txCtx, req)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Registration failed: %s", err.Error())
		_ = rf.createAuditLog(ctx, account, models.AuditActionAccountCreate, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	} else {
		msg := fmt.Sprintf("Account registered, awaiting approval: %d", account.ID)
		_ = rf.createAuditLog(ctx, account, models.AuditActionAccountCreate, msg, true, nil, metadata)
	}

	return &dto.RegisterResponse{
		Message:   "Registration successful. Your account is pending admin approval.",
		AccountID: account.ID,
		Account:   ToAccountDTO(*account),
	}, nil
}

// Private helper methods

func (rf *RegistrationFlowImpl) validateRegisterRequest(ctx context.Context, req *dto.RegisterRequest) error {
	existing, err := rf.accountRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameAlreadyExists
	}

	existing, err = rf.accountRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailAlreadyExists
	}

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
	if !models.ValidBranches[req.CompanyBranch] {
		return ErrInvalidBranch
	}

	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}

	return nil
}

func (rf *RegistrationFlowImpl) createAccount(ctx context.Context, req *dto.RegisterRequest) (*models.Account, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), rf.bcryptCost)
	if err != nil {
		return nil, err
	}

	// New accounts are active immediately but cannot log in until an
	// administrator approves them. The model save hook promotes
	// privileged registrations on its own.
	account := &models.Account{
		UUID:          uuid.New(),
		Username:      req.Username,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		CompanyBranch: req.CompanyBranch,
		CompanyRole:   req.CompanyRole,
		Section:       req.Section,
		PasswordHash:  string(hashedPassword),
		IsActive:      utils.ToPtr(true),
		IsApproved:    utils.ToPtr(false),
		IsStaff:       utils.ToPtr(false),
		IsSuperuser:   utils.ToPtr(false),
	}

	if err := rf.accountRepo.Save(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

func (rf *RegistrationFlowImpl) createAuditLog(ctx context.Context, account *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	return rf.auditRepo.Save(ctx, audit)
}
