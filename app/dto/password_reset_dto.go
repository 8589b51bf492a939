// Package dto contains Data Transfer Objects for API request and response structures
package dto

// ForgotPasswordRequest represents an unauthenticated reset request.
// The reason is reviewed by an administrator before any password change.
type ForgotPasswordRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Reason   string `json:"reason" validate:"required,min=10,max=1000"`

	CaptchaChallengeID string  `json:"captcha_challenge_id" validate:"required"`
	CaptchaAngle       float64 `json:"captcha_angle" validate:"required"`
}

// RequestPasswordResetRequest represents an authenticated reset request.
// AccountID defaults to the caller; only administrators may name
// another account.
type RequestPasswordResetRequest struct {
	AccountID *uint  `json:"account_id,omitempty"`
	Reason    string `json:"reason" validate:"required,min=10,max=1000"`
}

// PasswordResetRequestDTO represents a reset request in review views
type PasswordResetRequestDTO struct {
	ID            uint    `json:"id"`
	AccountID     uint    `json:"account_id"`
	Username      string  `json:"username"`
	RequestedByID uint    `json:"requested_by_id"`
	RequestedBy   string  `json:"requested_by"`
	Reason        string  `json:"reason"`
	Status        string  `json:"status"`
	AdminNotes    *string `json:"admin_notes,omitempty"`
	ReviewedAt    *string `json:"reviewed_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// RequestPasswordResetResponse represents the response after filing a request
type RequestPasswordResetResponse struct {
	Message string                  `json:"message"`
	Request PasswordResetRequestDTO `json:"request"`
}

// ReviewPasswordResetRequest represents the admin review decision
type ReviewPasswordResetRequest struct {
	Status     string  `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	AdminNotes *string `json:"admin_notes,omitempty" validate:"omitempty,max=1000"`
}

// ReviewPasswordResetResponse represents the response after review
type ReviewPasswordResetResponse struct {
	Message string                  `json:"message"`
	Request PasswordResetRequestDTO `json:"request"`
}

// CompletePasswordResetRequest carries the new password an admin sets
// for an approved request.
type CompletePasswordResetRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// CompletePasswordResetResponse represents the response after completion
type CompletePasswordResetResponse struct {
	Message string                  `json:"message"`
	Request PasswordResetRequestDTO `json:"request"`
}

// ListPasswordResetsResponse groups requests for the admin review queue
type ListPasswordResetsResponse struct {
	Pending      []PasswordResetRequestDTO `json:"pending"`
	Approved     []PasswordResetRequestDTO `json:"approved"`
	Rejected     []PasswordResetRequestDTO `json:"rejected"`
	TotalPending int64                     `json:"total_pending"`
}
