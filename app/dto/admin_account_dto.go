// Package dto contains Data Transfer Objects for API request and response structures
package dto

// AdminListAccountsRequest holds optional filters for account listing
type AdminListAccountsRequest struct {
	Status  string `query:"status" validate:"omitempty,oneof=all pending approved inactive"`
	Role    string `query:"role" validate:"omitempty"`
	Section string `query:"section" validate:"omitempty"`
	Page    int    `query:"page" validate:"omitempty,min=1"`
	Limit   int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// AdminListAccountsResponse is the paginated listing payload
type AdminListAccountsResponse struct {
	Message  string       `json:"message"`
	Accounts []AccountDTO `json:"accounts"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
}

// AdminApprovalQueueResponse lists accounts awaiting initial approval
type AdminApprovalQueueResponse struct {
	Pending       []AccountDTO `json:"pending"`
	Approved      []AccountDTO `json:"approved"`
	TotalPending  int64        `json:"total_pending"`
	TotalApproved int64        `json:"total_approved"`
}

// AdminAccountActionResponse reports the outcome of an admin action on an account
type AdminAccountActionResponse struct {
	Message string     `json:"message"`
	Account AccountDTO `json:"account"`
}

// AdminBulkActionRequest names the accounts a bulk approve or reject targets
type AdminBulkActionRequest struct {
	AccountIDs []uint `json:"account_ids" validate:"required,min=1,max=100,dive,min=1"`
}

// AdminBulkActionResponse reports how many accounts a bulk action changed
type AdminBulkActionResponse struct {
	Message  string `json:"message"`
	Affected int64  `json:"affected"`
}

// AdminProfileApprovalListResponse lists accounts with staged profile changes
type AdminProfileApprovalListResponse struct {
	Pending      []PendingProfileUpdateDTO `json:"pending"`
	TotalPending int64                     `json:"total_pending"`
}

// PendingProfileUpdateDTO pairs an account with its staged changes
type PendingProfileUpdateDTO struct {
	Account        AccountDTO        `json:"account"`
	PendingChanges map[string]string `json:"pending_changes"`
}

// AuditLogDTO represents an audit entry in activity views
type AuditLogDTO struct {
	ID          uint    `json:"id"`
	AccountID   *uint   `json:"account_id,omitempty"`
	Username    string  `json:"username,omitempty"`
	Action      string  `json:"action"`
	Description *string `json:"description,omitempty"`
	IPAddress   *string `json:"ip_address,omitempty"`
	UserAgent   *string `json:"user_agent,omitempty"`
	Success     *bool   `json:"success"`
	CreatedAt   string  `json:"created_at"`
}

// AdminUserActivityResponse shows recent actions and per-action counts
// for one account
type AdminUserActivityResponse struct {
	Account      AccountDTO       `json:"account"`
	Entries      []AuditLogDTO    `json:"entries"`
	ActionCounts map[string]int64 `json:"action_counts"`
	TotalActions int64            `json:"total_actions"`
}

// AdminSystemActivityRequest holds filters for the system-wide activity view
type AdminSystemActivityRequest struct {
	Action    string `query:"action" validate:"omitempty"`
	AccountID uint   `query:"account_id" validate:"omitempty"`
	DateFrom  string `query:"date_from" validate:"omitempty"`
	DateTo    string `query:"date_to" validate:"omitempty"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=500"`
}

// AdminSystemActivityResponse is the filtered system-wide activity payload
type AdminSystemActivityResponse struct {
	Entries []AuditLogDTO `json:"entries"`
	Total   int64         `json:"total"`
}

// AdminDashboardResponse carries the admin dashboard statistics
type AdminDashboardResponse struct {
	TotalAccounts         int64            `json:"total_accounts"`
	PendingApprovals      int64            `json:"pending_approvals"`
	ApprovedAccounts      int64            `json:"approved_accounts"`
	PendingPasswordResets int64            `json:"pending_password_resets"`
	RoleDistribution      map[string]int64 `json:"role_distribution"`
	SectionDistribution   map[string]int64 `json:"section_distribution"`
	RecentRegistrations   []AccountDTO     `json:"recent_registrations"`
}
