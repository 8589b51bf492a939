// Package models contains domain entities and business models for the account system
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AccountID    *uint           `gorm:"index:idx_audit_account_id;index:idx_audit_account_created,priority:1" json:"account_id,omitempty"`
	Account      *Account        `gorm:"foreignKey:AccountID;references:ID" json:"account,omitempty"`
	Action       string          `gorm:"size:30;not null;index:idx_audit_action;index:idx_audit_action_created,priority:1" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at;index:idx_audit_account_created,priority:2;index:idx_audit_action_created,priority:2" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action kinds
const (
	AuditActionLogin                = "login"
	AuditActionLogout               = "logout"
	AuditActionProfileUpdate        = "profile_update"
	AuditActionPasswordChange       = "password_change"
	AuditActionCalculation          = "calculation"
	AuditActionAccountCreate        = "account_create"
	AuditActionAccountDelete        = "account_delete"
	AuditActionPasswordResetRequest = "password_reset_request"
)

// AuditActionKinds lists every recordable action, for filter validation
// and display.
var AuditActionKinds = []string{
	AuditActionLogin,
	AuditActionLogout,
	AuditActionProfileUpdate,
	AuditActionPasswordChange,
	AuditActionCalculation,
	AuditActionAccountCreate,
	AuditActionAccountDelete,
	AuditActionPasswordResetRequest,
}

func IsValidAuditAction(action string) bool {
	for _, a := range AuditActionKinds {
		if a == action {
			return true
		}
	}
	return false
}

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	AccountID     *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

func (a *AuditLog) IsSecurityEvent() bool {
	securityActions := map[string]bool{
		AuditActionLogin:                true,
		AuditActionLogout:               true,
		AuditActionPasswordChange:       true,
		AuditActionAccountDelete:        true,
		AuditActionPasswordResetRequest: true,
	}
	return securityActions[a.Action]
}
