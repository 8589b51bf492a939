// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/utils"
	"gorm.io/gorm"
)

// PasswordResetRequestRepositoryImpl implements PasswordResetRequestRepository interface
type PasswordResetRequestRepositoryImpl struct {
	*BaseRepository[models.PasswordResetRequest, models.PasswordResetRequestFilter]
}

// NewPasswordResetRequestRepository creates a new password reset request repository
func NewPasswordResetRequestRepository(db *gorm.DB) PasswordResetRequestRepository {
	return &PasswordResetRequestRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PasswordResetRequest, models.PasswordResetRequestFilter](db),
	}
}

// ByIDAndStatus retrieves a reset request only when it currently holds
// the given status.
func (r *PasswordResetRequestRepositoryImpl) ByIDAndStatus(ctx context.Context, id uint, status string) (*models.PasswordResetRequest, error) {
	db := r.getDB(ctx)

	var request models.PasswordResetRequest
	err := db.Where("id = ? AND status = ?", id, status).
		Preload("Account").
		Preload("RequestedBy").
		First(&request).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find reset request by id and status: %w", err)
	}

	return &request, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *PasswordResetRequestRepositoryImpl) applyFilter(query *gorm.DB, filter models.PasswordResetRequestFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.RequestedByID != nil {
		query = query.Where("requested_by_id = ?", *filter.RequestedByID)
	}
	if filter.ReviewedByID != nil {
		query = query.Where("reviewed_by_id = ?", *filter.ReviewedByID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves reset requests based on filter criteria, newest first by default
func (r *PasswordResetRequestRepositoryImpl) ByFilter(ctx context.Context, filter models.PasswordResetRequestFilter, orderBy string, limit, offset int) ([]*models.PasswordResetRequest, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PasswordResetRequest{}), filter)

	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var requests []*models.PasswordResetRequest
	err := query.Preload("Account").Preload("RequestedBy").Find(&requests).Error
	if err != nil {
		return nil, err
	}

	return requests, nil
}

// Count returns the number of reset requests matching the filter
func (r *PasswordResetRequestRepositoryImpl) Count(ctx context.Context, filter models.PasswordResetRequestFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PasswordResetRequest{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any reset request matching the filter exists
func (r *PasswordResetRequestRepositoryImpl) Exists(ctx context.Context, filter models.PasswordResetRequestFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByStatus retrieves reset requests in a given status, newest first
func (r *PasswordResetRequestRepositoryImpl) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.PasswordResetRequest, error) {
	filter := models.PasswordResetRequestFilter{Status: &status}
	requests, err := r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reset requests by status: %w", err)
	}
	return requests, nil
}

// Update persists the full reset request state
func (r *PasswordResetRequestRepositoryImpl) Update(ctx context.Context, request *models.PasswordResetRequest) error {
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

	request.UpdatedAt = utils.UTCNow()

	err = db.Save(request).Error
	if err != nil {
		return fmt.Errorf("failed to update reset request: %w", err)
	}

	return nil
}
