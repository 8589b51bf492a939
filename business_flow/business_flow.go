// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToAccountDTO converts an account model to AccountDTO for API responses
func ToAccountDTO(account models.Account) dto.AccountDTO {
	d := dto.AccountDTO{
		ID:                   account.ID,
		UUID:                 account.UUID.String(),
		Username:             account.Username,
		FirstName:            account.FirstName,
		LastName:             account.LastName,
		Email:                account.Email,
		PhoneNumber:          account.PhoneNumber,
		CompanyBranch:        account.CompanyBranch,
		CompanyRole:          account.CompanyRole,
		Section:              account.Section,
		IsActive:             account.IsActive,
		IsApproved:           account.IsApproved,
		IsStaff:              account.IsStaff,
		ProfileUpdatePending: account.ProfileUpdatePending,
		CreatedAt:            account.CreatedAt.Format(time.RFC3339),
	}
	if account.ApprovedAt != nil {
		approvedAt := account.ApprovedAt.Format(time.RFC3339)
		d.ApprovedAt = &approvedAt
	}
	if account.LastLoginAt != nil {
		lastLogin := account.LastLoginAt.Format(time.RFC3339)
		d.LastLoginAt = &lastLogin
	}
	return d
}

// ToSessionDTO converts a session model to SessionDTO for login responses
func ToSessionDTO(session models.AccountSession) dto.SessionDTO {
	return dto.SessionDTO{
		SessionToken: session.SessionToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int(time.Until(session.ExpiresAt).Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
}

// ToAuditLogDTO converts an audit log entry for activity views
func ToAuditLogDTO(entry models.AuditLog) dto.AuditLogDTO {
	d := dto.AuditLogDTO{
		ID:          entry.ID,
		AccountID:   entry.AccountID,
		Action:      entry.Action,
		Description: entry.Description,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
		Success:     entry.Success,
		CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.Account != nil {
		d.Username = entry.Account.Username
	}
	return d
}

// ToResetRequestDTO converts a password reset request for review views
func ToResetRequestDTO(request models.PasswordResetRequest) dto.PasswordResetRequestDTO {
	d := dto.PasswordResetRequestDTO{
		ID:            request.ID,
		AccountID:     request.AccountID,
		Username:      request.Account.Username,
		RequestedByID: request.RequestedByID,
		RequestedBy:   request.RequestedBy.Username,
		Reason:        request.Reason,
		Status:        request.Status,
		AdminNotes:    request.AdminNotes,
		CreatedAt:     request.CreatedAt.Format(time.RFC3339),
	}
	if request.ReviewedAt != nil {
		reviewedAt := request.ReviewedAt.Format(time.RFC3339)
		d.ReviewedAt = &reviewedAt
	}
	return d
}
