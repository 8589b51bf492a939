// Package testing provides test utilities and database setup for testing the account system
package testing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAccount creates an approved, active account with the given role
// and section. The password is always "TestPass123!".
func (tf *TestFixtures) CreateTestAccount(role, section string) (*models.Account, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	suffix := fmt.Sprintf("%09d", mrand.Intn(900000000)+100000000)
	phone := "+256" + suffix

	account := &models.Account{
		UUID:          uuid.New(),
		Username:      "user_" + suffix,
		FirstName:     "John",
		LastName:      "Doe",
		Email:         fmt.Sprintf("john.doe.%s@example.com", suffix),
		PhoneNumber:   &phone,
		CompanyBranch: models.BranchKawempe,
		CompanyRole:   role,
		Section:       section,
		PasswordHash:  string(hashedPassword),
		IsActive:      utils.ToPtr(true),
		IsApproved:    utils.ToPtr(true),
		IsStaff:       utils.ToPtr(false),
		IsSuperuser:   utils.ToPtr(false),
	}

	if err := tf.DB.DB.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}

	return account, nil
}

// CreatePendingAccount creates an active account that has not been approved yet
func (tf *TestFixtures) CreatePendingAccount(role, section string) (*models.Account, error) {
	account, err := tf.CreateTestAccount(role, section)
	if err != nil {
		return nil, err
	}

	account.IsApproved = utils.ToPtr(false)
	if err := tf.DB.DB.Save(account).Error; err != nil {
		return nil, fmt.Errorf("failed to mark account pending: %w", err)
	}

	return account, nil
}

// CreateAdminAccount creates a staff account with the admin role
func (tf *TestFixtures) CreateAdminAccount() (*models.Account, error) {
	account, err := tf.CreateTestAccount(models.RoleAdmin, models.SectionOther)
	if err != nil {
		return nil, err
	}

	account.IsStaff = utils.ToPtr(true)
	account.IsSuperuser = utils.ToPtr(true)
	if err := tf.DB.DB.Save(account).Error; err != nil {
		return nil, fmt.Errorf("failed to promote admin account: %w", err)
	}

	return account, nil
}

func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateTestSession creates a test account session
func (tf *TestFixtures) CreateTestSession(accountID uint) (*models.AccountSession, error) {
	sessionToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure session token: %w", err)
	}

	refreshToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure refresh token: %w", err)
	}

	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	session := &models.AccountSession{
		CorrelationID: uuid.New(),
		AccountID:     accountID,
		SessionToken:  sessionToken,
		RefreshToken:  &refreshToken,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
		IsActive:      utils.ToPtr(true),
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}

	return session, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(accountID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		AccountID:   accountID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}

// CreateTestResetRequest creates a password reset request in the given status
func (tf *TestFixtures) CreateTestResetRequest(accountID, requestedByID uint, status string) (*models.PasswordResetRequest, error) {
	request := &models.PasswordResetRequest{
		AccountID:     accountID,
		RequestedByID: requestedByID,
		Reason:        "Forgot my password after leave",
		Status:        status,
	}

	if err := tf.DB.DB.Create(request).Error; err != nil {
		return nil, fmt.Errorf("failed to create test reset request: %w", err)
	}

	return request, nil
}
