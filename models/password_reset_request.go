// Package models contains domain entities and business models for the account system
package models

import (
	"time"
)

// Password reset request statuses. PENDING moves to APPROVED or
// REJECTED on admin review; APPROVED moves to COMPLETED once an admin
// sets the new password. No other transition is legal.
const (
	ResetStatusPending   = "PENDING"
	ResetStatusApproved  = "APPROVED"
	ResetStatusRejected  = "REJECTED"
	ResetStatusCompleted = "COMPLETED"
)

type PasswordResetRequest struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	AccountID uint    `gorm:"not null;index:idx_reset_requests_account_id" json:"account_id"`
	Account   Account `gorm:"foreignKey:AccountID;references:ID" json:"account,omitempty"`

	// Who filed the request: the account holder, or an administrator
	// acting on their behalf.
	RequestedByID uint    `gorm:"not null;index:idx_reset_requests_requested_by_id" json:"requested_by_id"`
	RequestedBy   Account `gorm:"foreignKey:RequestedByID;references:ID" json:"requested_by,omitempty"`

	Reason string `gorm:"type:text;not null" json:"reason"`
	Status string `gorm:"size:20;not null;default:'PENDING';index:idx_reset_requests_status" json:"status"`

	AdminNotes   *string    `gorm:"type:text" json:"admin_notes,omitempty"`
	ReviewedByID *uint      `json:"reviewed_by_id,omitempty"`
	ReviewedBy   *Account   `gorm:"foreignKey:ReviewedByID;references:ID" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_reset_requests_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PasswordResetRequest) TableName() string {
	return "password_reset_requests"
}

// PasswordResetRequestFilter represents filter criteria for reset request queries
type PasswordResetRequestFilter struct {
	ID            *uint
	AccountID     *uint
	RequestedByID *uint
	ReviewedByID  *uint
	Status        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (r *PasswordResetRequest) IsPending() bool {
	return r.Status == ResetStatusPending
}

func (r *PasswordResetRequest) IsApproved() bool {
	return r.Status == ResetStatusApproved
}

// IsTerminal reports whether the request can no longer change state.
func (r *PasswordResetRequest) IsTerminal() bool {
	return r.Status == ResetStatusRejected || r.Status == ResetStatusCompleted
}
