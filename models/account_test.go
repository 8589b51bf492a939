package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/plastiqc/accounts/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeforeSavePrivilegePromotion(t *testing.T) {
	tests := []struct {
		name             string
		account          Account
		expectApproved   bool
		expectStaffAfter bool
	}{
		{
			name:             "OperatorStaysUnapproved",
			account:          Account{CompanyRole: RoleOperator},
			expectApproved:   false,
			expectStaffAfter: false,
		},
		{
			name:             "AdminRolePromoted",
			account:          Account{CompanyRole: RoleAdmin},
			expectApproved:   true,
			expectStaffAfter: true,
		},
		{
			name:             "SuperuserPromoted",
			account:          Account{CompanyRole: RoleOperator, IsSuperuser: utils.ToPtr(true)},
			expectApproved:   true,
			expectStaffAfter: true,
		},
		{
			name:             "StaffPromoted",
			account:          Account{CompanyRole: RoleOperator, IsStaff: utils.ToPtr(true)},
			expectApproved:   true,
			expectStaffAfter: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.account.BeforeSave(nil))
			assert.Equal(t, tt.expectApproved, utils.IsTrue(tt.account.IsApproved))
			assert.Equal(t, tt.expectStaffAfter, utils.IsTrue(tt.account.IsStaff))
		})
	}
}

func TestIsAdministrator(t *testing.T) {
	assert.True(t, (&Account{CompanyRole: RoleAdmin}).IsAdministrator())
	assert.True(t, (&Account{CompanyRole: RoleOperator, IsSuperuser: utils.ToPtr(true)}).IsAdministrator())
	assert.True(t, (&Account{CompanyRole: RoleOperator, IsStaff: utils.ToPtr(true)}).IsAdministrator())
	assert.False(t, (&Account{CompanyRole: RoleSupervisor}).IsAdministrator())
	assert.False(t, (&Account{CompanyRole: RoleManager}).IsAdministrator())
}

func TestIsPendingApproval(t *testing.T) {
	pending := &Account{IsActive: utils.ToPtr(true), IsApproved: utils.ToPtr(false)}
	assert.True(t, pending.IsPendingApproval())

	approved := &Account{IsActive: utils.ToPtr(true), IsApproved: utils.ToPtr(true)}
	assert.False(t, approved.IsPendingApproval())

	// A deactivated account left the queue, rejected or deleted
	inactive := &Account{IsActive: utils.ToPtr(false), IsApproved: utils.ToPtr(false)}
	assert.False(t, inactive.IsPendingApproval())
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Jane Kasozi", (&Account{FirstName: "Jane", LastName: "Kasozi"}).FullName())
	assert.Equal(t, "Jane", (&Account{FirstName: "Jane"}).FullName())
	assert.Equal(t, "jkasozi", (&Account{Username: "jkasozi"}).FullName())
}

func TestPendingChanges(t *testing.T) {
	empty := &Account{}
	changes, err := empty.PendingChanges()
	require.NoError(t, err)
	assert.Empty(t, changes)

	staged := &Account{PendingProfileData: json.RawMessage(`{"company_role":"supervisor","first_name":"Jane"}`)}
	changes, err = staged.PendingChanges()
	require.NoError(t, err)
	assert.Equal(t, "supervisor", changes[ProfileFieldCompanyRole])
	assert.Equal(t, "Jane", changes[ProfileFieldFirstName])

	corrupt := &Account{PendingProfileData: json.RawMessage(`not json`)}
	_, err = corrupt.PendingChanges()
	assert.Error(t, err)
}

func TestPhoneNumberPattern(t *testing.T) {
	valid := []string{"+256701234567", "256701234567", "0701234567", "+14155551234"}
	for _, p := range valid {
		assert.True(t, PhoneNumberPattern.MatchString(p), p)
	}

	invalid := []string{"", "+256", "phone", "070-123-4567", "+2567012345678901234"}
	for _, p := range invalid {
		assert.False(t, PhoneNumberPattern.MatchString(p), p)
	}
}

func TestSessionValidity(t *testing.T) {
	live := &AccountSession{IsActive: utils.ToPtr(true), ExpiresAt: time.Now().Add(time.Hour)}
	assert.True(t, live.IsValid())
	assert.False(t, live.IsExpired())

	expired := &AccountSession{IsActive: utils.ToPtr(true), ExpiresAt: time.Now().Add(-time.Minute)}
	assert.True(t, expired.IsExpired())
	assert.False(t, expired.IsValid())

	revoked := &AccountSession{IsActive: utils.ToPtr(false), ExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, revoked.IsValid())
}

func TestResetRequestStates(t *testing.T) {
	pending := &PasswordResetRequest{Status: ResetStatusPending}
	assert.True(t, pending.IsPending())
	assert.False(t, pending.IsTerminal())

	approved := &PasswordResetRequest{Status: ResetStatusApproved}
	assert.True(t, approved.IsApproved())
	assert.False(t, approved.IsTerminal())

	assert.True(t, (&PasswordResetRequest{Status: ResetStatusRejected}).IsTerminal())
	assert.True(t, (&PasswordResetRequest{Status: ResetStatusCompleted}).IsTerminal())
}

func TestIsValidAuditAction(t *testing.T) {
	for _, action := range AuditActionKinds {
		assert.True(t, IsValidAuditAction(action))
	}
	assert.False(t, IsValidAuditAction("made_coffee"))
	assert.False(t, IsValidAuditAction(""))
	assert.False(t, IsValidAuditAction("LOGIN"))
}
