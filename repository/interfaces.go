// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/plastiqc/accounts/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// AccountRepository defines operations for accounts
type AccountRepository interface {
	Repository[models.Account, models.AccountFilter]
	ByUsername(ctx context.Context, username string) (*models.Account, error)
	ByEmail(ctx context.Context, email string) (*models.Account, error)
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	UpdatePassword(ctx context.Context, accountID uint, passwordHash string) error
	BulkApprove(ctx context.Context, accountIDs []uint, approvedByID uint) (int64, error)
	BulkReject(ctx context.Context, accountIDs []uint) (int64, error)
	RoleDistribution(ctx context.Context) (map[string]int64, error)
	SectionDistribution(ctx context.Context) (map[string]int64, error)
}

// AccountSessionRepository defines operations for account sessions
type AccountSessionRepository interface {
	Repository[models.AccountSession, models.AccountSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.AccountSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.AccountSession, error)
	ListActiveSessionsByAccount(ctx context.Context, accountID uint) ([]*models.AccountSession, error)
	ExpireSession(ctx context.Context, sessionID uint) error
	ExpireAllAccountSessions(ctx context.Context, accountID uint) error
	CleanupExpiredSessions(ctx context.Context) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
	ListSecurityEvents(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
	ActionCountsByAccount(ctx context.Context, accountID uint) (map[string]int64, error)
}

// PasswordResetRequestRepository defines operations for password reset requests
type PasswordResetRequestRepository interface {
	Repository[models.PasswordResetRequest, models.PasswordResetRequestFilter]
	ByIDAndStatus(ctx context.Context, id uint, status string) (*models.PasswordResetRequest, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.PasswordResetRequest, error)
	Update(ctx context.Context, request *models.PasswordResetRequest) error
}
