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

// LoginFlow handles authentication against approved accounts
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Logout(ctx context.Context, account *models.Account, sessionToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	accountRepo repository.AccountRepository
	sessionRepo repository.AccountSessionRepository
	auditRepo   repository.AuditLogRepository
	tokenSvc    services.TokenService
	db          *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	accountRepo repository.AccountRepository,
	sessionRepo repository.AccountSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenSvc services.TokenService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		tokenSvc:    tokenSvc,
		db:          db,
	}
}

// Login authenticates an account and creates a session.
// Unapproved accounts fail with a distinct pending-approval error so the
// handler can tell the user to wait rather than retype their password.
func (lf *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	account, err := lf.accountRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("LOGIN_LOOKUP_FAILED", "Failed to look up account", err)
	}
	// Unknown usernames and wrong passwords produce the same error so a
	// caller cannot probe which usernames exist
	if account == nil {
		_ = lf.logLoginAttempt(ctx, nil, req.Username, false, "account not found", metadata)
		return nil, NewBusinessError("LOGIN_INVALID_CREDENTIALS", "Invalid username or password", ErrInvalidLogin)
	}

	if !utils.IsTrue(account.IsActive) {
		_ = lf.logLoginAttempt(ctx, account, req.Username, false, "account inactive", metadata)
		return nil, NewBusinessError("LOGIN_ACCOUNT_INACTIVE", "Account is deactivated", ErrAccountInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		_ = lf.logLoginAttempt(ctx, account, req.Username, false, "incorrect password", metadata)
		return nil, NewBusinessError("LOGIN_INVALID_CREDENTIALS", "Invalid username or password", ErrInvalidLogin)
	}

	if account.IsPendingApproval() {
		_ = lf.logLoginAttempt(ctx, account, req.Username, false, "pending admin approval", metadata)
		return nil, NewBusinessError("LOGIN_PENDING_APPROVAL", "Account is pending admin approval", ErrPendingApproval)
	}

	response, err := lf.WithLoginTransaction(ctx, func(txCtx context.Context) (*dto.LoginResponse, error) {
		session, err := lf.createSession(txCtx, account, metadata)
		if err != nil {
			return nil, err
		}

		account.LastLoginAt = utils.UTCNowPtr()
		if err := lf.accountRepo.Update(txCtx, account); err != nil {
			return nil, err
		}

		accountDTO := ToAccountDTO(*account)
		sessionDTO := ToSessionDTO(*session)

		return &dto.LoginResponse{
			Message: "Login successful",
			Account: accountDTO,
			Session: sessionDTO,
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		_ = lf.logLoginAttempt(ctx, account, req.Username, false, errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	_ = lf.logLoginAttempt(ctx, account, req.Username, true, "login successful", metadata)

	return response, nil
}

// Logout revokes the current session and its tokens
func (lf *LoginFlowImpl) Logout(ctx context.Context, account *models.Account, sessionToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	session, err := lf.sessionRepo.BySessionToken(ctx, sessionToken)
	if err != nil {
		return nil, NewBusinessError("LOGOUT_SESSION_LOOKUP_FAILED", "Failed to look up session", err)
	}
	if session == nil || session.AccountID != account.ID {
		return nil, NewBusinessError("LOGOUT_SESSION_NOT_FOUND", "Session not found", ErrSessionNotFound)
	}

	err = repository.WithTransaction(ctx, lf.db, func(txCtx context.Context) error {
		return lf.sessionRepo.ExpireSession(txCtx, session.ID)
	})
	if err != nil {
		return nil, NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	// Token revocation is best effort, the session row is already dead
	_ = lf.tokenSvc.RevokeToken(ctx, sessionToken)
	if session.RefreshToken != nil {
		_ = lf.tokenSvc.RevokeToken(ctx, *session.RefreshToken)
	}

	_ = lf.createAuditLog(ctx, account, models.AuditActionLogout, "logout successful", true, nil, metadata)

	return &dto.LogoutResponse{Message: "Logged out successfully"}, nil
}

// WithLoginTransaction executes a login operation inside a database transaction
func (lf *LoginFlowImpl) WithLoginTransaction(ctx context.Context, fn func(context.Context) (*dto.LoginResponse, error)) (*dto.LoginResponse, error) {
	var response *dto.LoginResponse

	err := repository.WithTransaction(ctx, lf.db, func(txCtx context.Context) error {
		var err error
		response, err = fn(txCtx)
		return err
	})

	if err != nil {
		return nil, err
	}

	return response, nil
}

// Private helper methods

func (lf *LoginFlowImpl) createSession(ctx context.Context, account *models.Account, metadata *ClientMetadata) (*models.AccountSession, error) {
	accessToken, refreshToken, err := lf.tokenSvc.GenerateTokens(account.ID)
	if err != nil {
		return nil, err
	}

	var ipAddress, userAgent *string
	if metadata != nil {
		if metadata.IPAddress != "" {
			ipAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			userAgent = &metadata.UserAgent
		}
	}

	session := &models.AccountSession{
		CorrelationID:  uuid.New(),
		AccountID:      account.ID,
		SessionToken:   accessToken,
		RefreshToken:   &refreshToken,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		IsActive:       utils.ToPtr(true),
		CreatedAt:      utils.UTCNow(),
		LastAccessedAt: utils.UTCNow(),
		ExpiresAt:      utils.UTCNowAdd(utils.SessionTimeout),
	}

	if err := lf.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (lf *LoginFlowImpl) logLoginAttempt(ctx context.Context, account *models.Account, username string, success bool, message string, metadata *ClientMetadata) error {
	description := fmt.Sprintf("Login attempt for %s: %s", username, message)

	var errMsg *string
	if !success {
		errMsg = &message
	}

	return lf.createAuditLog(ctx, account, models.AuditActionLogin, description, success, errMsg, metadata)
}

func (lf *LoginFlowImpl) createAuditLog(ctx context.Context, account *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	return lf.auditRepo.Save(ctx, audit)
}
