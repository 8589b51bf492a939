// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/utils"
	"gorm.io/gorm"
)

// AccountRepositoryImpl implements AccountRepository interface
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

// ByUsername retrieves an account by username
func (r *AccountRepositoryImpl) ByUsername(ctx context.Context, username string) (*models.Account, error) {
	filter := models.AccountFilter{Username: &username}
	accounts, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by username: %w", err)
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// ByEmail retrieves an account by email address
func (r *AccountRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	filter := models.AccountFilter{Email: &email}
	accounts, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// ByUUID retrieves an account by UUID
func (r *AccountRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	filter := models.AccountFilter{UUID: &id}
	accounts, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by UUID: %w", err)
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// applyFilter applies filter criteria to a GORM query
func (r *AccountRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Username != nil {
		query = query.Where("username = ?", *filter.Username)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}
	if filter.CompanyBranch != nil {
		query = query.Where("company_branch = ?", *filter.CompanyBranch)
	}
	if filter.CompanyRole != nil {
		query = query.Where("company_role = ?", *filter.CompanyRole)
	}
	if filter.Section != nil {
		query = query.Where("section = ?", *filter.Section)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsApproved != nil {
		query = query.Where("is_approved = ?", *filter.IsApproved)
	}
	if filter.IsStaff != nil {
		query = query.Where("is_staff = ?", *filter.IsStaff)
	}
	if filter.ProfileUpdatePending != nil {
		query = query.Where("profile_update_pending = ?", *filter.ProfileUpdatePending)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves accounts based on filter criteria
func (r *AccountRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Account{}), filter)

	// Apply ordering (default to id DESC)
	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var accounts []*models.Account
	err := query.Find(&accounts).Error
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

// Count returns the number of accounts matching the filter
func (r *AccountRepositoryImpl) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Account{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any account matching the filter exists
func (r *AccountRepositoryImpl) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update persists the full account state
func (r *AccountRepositoryImpl) Update(ctx context.Context, account *models.Account) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	account.UpdatedAt = utils.UTCNow()

	err = db.Save(account).Error
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	return nil
}

// UpdatePassword updates only the password hash and change timestamp
func (r *AccountRepositoryImpl) UpdatePassword(ctx context.Context, accountID uint, passwordHash string) error {
	db := r.getDB(ctx)
	return db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"password_hash":        passwordHash,
			"last_password_change": utils.UTCNow(),
			"updated_at":           utils.UTCNow(),
		}).Error
}

// BulkApprove approves every listed account that is still unapproved
// and returns the number of rows changed. Already-approved accounts are
// left untouched so their original approval metadata survives.
func (r *AccountRepositoryImpl) BulkApprove(ctx context.Context, accountIDs []uint, approvedByID uint) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}

	db := r.getDB(ctx)
	now := utils.UTCNow()
	result := db.Model(&models.Account{}).
		Where("id IN ? AND is_approved = ?", accountIDs, false).
		Updates(map[string]any{
			"is_approved":    true,
			"approved_by_id": approvedByID,
			"approved_at":    now,
			"updated_at":     now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to bulk approve accounts: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// BulkReject deactivates every listed account that is still pending
// approval and returns the number of rows changed
func (r *AccountRepositoryImpl) BulkReject(ctx context.Context, accountIDs []uint) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}

	db := r.getDB(ctx)
	result := db.Model(&models.Account{}).
		Where("id IN ? AND is_active = ? AND is_approved = ?", accountIDs, true, false).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": utils.UTCNow(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to bulk reject accounts: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// RoleDistribution returns the count of approved accounts per company role
func (r *AccountRepositoryImpl) RoleDistribution(ctx context.Context) (map[string]int64, error) {
	return r.distribution(ctx, "company_role")
}

// SectionDistribution returns the count of approved accounts per section
func (r *AccountRepositoryImpl) SectionDistribution(ctx context.Context) (map[string]int64, error) {
	return r.distribution(ctx, "section")
}

func (r *AccountRepositoryImpl) distribution(ctx context.Context, column string) (map[string]int64, error) {
	db := r.getDB(ctx)

	type row struct {
		Value string
		Count int64
	}
	var rows []row
	err := db.Model(&models.Account{}).
		Select(column+" AS value, COUNT(id) AS count").
		Where("is_approved = ?", true).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate accounts by %s: %w", column, err)
	}

	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.Value] = r.Count
	}
	return result, nil
}
