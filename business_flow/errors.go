// Package businessflow contains the core business logic and use cases for account workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Error categories. Every business error wraps exactly one of these so
// callers can classify failures with errors.Is regardless of the
// specific cause.
var (
	ErrValidation         = errors.New("validation failed")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrPendingApproval    = errors.New("account is pending approval")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
)

// Business flow error constants
var (
	// Account-related errors
	ErrAccountNotFound       = fmt.Errorf("account %w", ErrNotFound)
	ErrAccountInactive       = fmt.Errorf("account is inactive: %w", ErrInvalidCredentials)
	ErrInvalidLogin          = fmt.Errorf("invalid username or password: %w", ErrInvalidCredentials)
	ErrUsernameAlreadyExists = fmt.Errorf("username already exists: %w", ErrValidation)
	ErrEmailAlreadyExists    = fmt.Errorf("email already exists: %w", ErrValidation)
	ErrInvalidPhoneNumber    = fmt.Errorf("invalid phone number: %w", ErrValidation)
	ErrInvalidRole           = fmt.Errorf("invalid company role: %w", ErrValidation)
	ErrInvalidSection        = fmt.Errorf("invalid section: %w", ErrValidation)
	ErrInvalidBranch         = fmt.Errorf("invalid company branch: %w", ErrValidation)
	ErrWeakPassword          = fmt.Errorf("password does not meet policy: %w", ErrValidation)
	ErrPasswordMismatch      = fmt.Errorf("passwords do not match: %w", ErrValidation)

	// Session errors
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrSessionExpired  = fmt.Errorf("session expired: %w", ErrInvalidCredentials)

	// Profile change errors
	ErrNoProfileChanges     = fmt.Errorf("no profile changes submitted: %w", ErrValidation)
	ErrNoPendingProfileData = fmt.Errorf("no pending profile update %w", ErrNotFound)

	// Password reset errors
	ErrResetRequestNotFound = fmt.Errorf("password reset request %w", ErrNotFound)
	ErrResetReasonRequired  = fmt.Errorf("reset reason is required: %w", ErrValidation)
	ErrResetNotForSelf      = fmt.Errorf("only administrators may request resets for other accounts: %w", ErrPermissionDenied)
	ErrInvalidReviewStatus  = fmt.Errorf("review status must be APPROVED or REJECTED: %w", ErrValidation)

	// Admin control errors
	ErrAdminRequired        = fmt.Errorf("administrator privilege required: %w", ErrPermissionDenied)
	ErrAccountNotPending    = fmt.Errorf("account is not pending approval: %w", ErrNotFound)
	ErrAccountNotInactive   = fmt.Errorf("account is not inactive: %w", ErrNotFound)
	ErrInvalidStatusFilter  = fmt.Errorf("invalid status filter: %w", ErrValidation)
	ErrInvalidActionKind    = fmt.Errorf("invalid audit action kind: %w", ErrValidation)
	ErrInvalidDateRange     = fmt.Errorf("date range start must precede end: %w", ErrValidation)
	ErrCaptchaFailed        = fmt.Errorf("captcha verification failed: %w", ErrValidation)
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsPendingApproval(err error) bool {
	return errors.Is(err, ErrPendingApproval)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsInvalidLogin(err error) bool {
	return errors.Is(err, ErrInvalidLogin)
}

func IsUsernameAlreadyExists(err error) bool {
	return errors.Is(err, ErrUsernameAlreadyExists)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsInvalidPhoneNumber(err error) bool {
	return errors.Is(err, ErrInvalidPhoneNumber)
}

func IsWeakPassword(err error) bool {
	return errors.Is(err, ErrWeakPassword)
}

func IsPasswordMismatch(err error) bool {
	return errors.Is(err, ErrPasswordMismatch)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

func IsNoProfileChanges(err error) bool {
	return errors.Is(err, ErrNoProfileChanges)
}

func IsNoPendingProfileData(err error) bool {
	return errors.Is(err, ErrNoPendingProfileData)
}

func IsResetRequestNotFound(err error) bool {
	return errors.Is(err, ErrResetRequestNotFound)
}

func IsResetNotForSelf(err error) bool {
	return errors.Is(err, ErrResetNotForSelf)
}

func IsInvalidReviewStatus(err error) bool {
	return errors.Is(err, ErrInvalidReviewStatus)
}

func IsAdminRequired(err error) bool {
	return errors.Is(err, ErrAdminRequired)
}

func IsAccountNotPending(err error) bool {
	return errors.Is(err, ErrAccountNotPending)
}

func IsAccountNotInactive(err error) bool {
	return errors.Is(err, ErrAccountNotInactive)
}

func IsCaptchaFailed(err error) bool {
	return errors.Is(err, ErrCaptchaFailed)
}
