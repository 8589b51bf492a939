// Package dto contains Data Transfer Objects for API request and response structures
package dto

// RegisterRequest represents the self-service registration form data
type RegisterRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=150,username_format"`
	FirstName   string  `json:"first_name" validate:"required,max=150,alpha_space"`
	LastName    string  `json:"last_name" validate:"required,max=150,alpha_space"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,phone_format"`

	CompanyBranch string `json:"company_branch" validate:"required,company_branch"`
	CompanyRole   string `json:"company_role" validate:"required,company_role"`
	Section       string `json:"section" validate:"required,company_section"`

	Password        string `json:"password" validate:"required,min=8,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`

	// Captcha challenge solution
	CaptchaChallengeID string  `json:"captcha_challenge_id" validate:"required"`
	CaptchaAngle       float64 `json:"captcha_angle" validate:"required"`
}

// CaptchaInitResponse carries a rotate captcha challenge
type CaptchaInitResponse struct {
	ChallengeID       string `json:"challenge_id"`
	MasterImageBase64 string `json:"master_image_base64"`
	ThumbImageBase64  string `json:"thumb_image_base64"`
}

// RegisterResponse represents the response after successful registration
type RegisterResponse struct {
	Message   string     `json:"message"`
	AccountID uint       `json:"account_id"`
	Account   AccountDTO `json:"account"`
}

// AccountDTO represents account data for API responses
type AccountDTO struct {
	ID                   uint    `json:"id"`
	UUID                 string  `json:"uuid"`
	Username             string  `json:"username"`
	FirstName            string  `json:"first_name"`
	LastName             string  `json:"last_name"`
	Email                string  `json:"email"`
	PhoneNumber          *string `json:"phone_number,omitempty"`
	CompanyBranch        string  `json:"company_branch"`
	CompanyRole          string  `json:"company_role"`
	Section              string  `json:"section"`
	IsActive             *bool   `json:"is_active"`
	IsApproved           *bool   `json:"is_approved"`
	IsStaff              *bool   `json:"is_staff"`
	ProfileUpdatePending *bool   `json:"profile_update_pending"`
	ApprovedAt           *string `json:"approved_at,omitempty"`
	LastLoginAt          *string `json:"last_login_at,omitempty"`
	CreatedAt            string  `json:"created_at"`
}
