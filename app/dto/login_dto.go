// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Message string     `json:"message"`
	Account AccountDTO `json:"account"`
	Session SessionDTO `json:"session"`
}

// SessionDTO represents session data returned on login
type SessionDTO struct {
	SessionToken string  `json:"session_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int     `json:"expires_in"`
	CreatedAt    string  `json:"created_at"`
}

// LogoutResponse represents the response after session revocation
type LogoutResponse struct {
	Message string `json:"message"`
}

// Common error codes for login operations
const (
	ErrorAccountNotFound    = "ACCOUNT_NOT_FOUND"
	ErrorInvalidCredentials = "INVALID_CREDENTIALS"
	ErrorAccountInactive    = "ACCOUNT_INACTIVE"
	ErrorPendingApproval    = "PENDING_APPROVAL"
)
