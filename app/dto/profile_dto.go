// Package dto contains Data Transfer Objects for API request and response structures
package dto

// GetProfileResponse represents the profile view payload
type GetProfileResponse struct {
	Account        AccountDTO        `json:"account"`
	PendingChanges map[string]string `json:"pending_changes,omitempty"`
}

// UpdateProfileRequest represents an authenticated profile edit.
// Username and password are not editable through this surface.
type UpdateProfileRequest struct {
	FirstName   string  `json:"first_name" validate:"required,max=150,alpha_space"`
	LastName    string  `json:"last_name" validate:"required,max=150,alpha_space"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,phone_format"`
	CompanyRole string  `json:"company_role" validate:"required,company_role"`
	Section     string  `json:"section" validate:"required,company_section"`
}

// UpdateProfileResponse reports whether the edit applied immediately or
// was staged for admin approval.
type UpdateProfileResponse struct {
	Message          string            `json:"message"`
	ApprovalRequired bool              `json:"approval_required"`
	Account          AccountDTO        `json:"account"`
	PendingChanges   map[string]string `json:"pending_changes,omitempty"`
}

// DeleteAccountRequest represents self-service account deletion
type DeleteAccountRequest struct {
	Confirm bool    `json:"confirm" validate:"required"`
	Reason  *string `json:"reason,omitempty" validate:"omitempty,max=1000"`
}

// DeleteAccountResponse represents the response after soft deletion
type DeleteAccountResponse struct {
	Message string `json:"message"`
}
