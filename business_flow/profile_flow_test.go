package businessflow

import (
	"context"
	"testing"

	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/repository"
	"github.com/plastiqc/accounts/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updateRequestFor(account *models.Account) *dto.UpdateProfileRequest {
	return &dto.UpdateProfileRequest{
		FirstName:   account.FirstName,
		LastName:    account.LastName,
		Email:       account.Email,
		PhoneNumber: account.PhoneNumber,
		CompanyRole: account.CompanyRole,
		Section:     account.Section,
	}
}

func TestProfileFlow(t *testing.T) {
	testDB, fixtures := newFlowTestDB(t)

	accountRepo := repository.NewAccountRepository(testDB.DB)
	sessionRepo := repository.NewAccountSessionRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	flow := NewProfileFlow(accountRepo, sessionRepo, auditRepo, testDB.DB)

	t.Run("GetProfile", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)

		resp, err := flow.GetProfile(context.Background(), account)
		require.NoError(t, err)
		assert.Equal(t, account.Username, resp.Account.Username)
		assert.Equal(t, account.Email, resp.Account.Email)
	})

	t.Run("BasicFieldsApplyImmediately", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)

		req := updateRequestFor(account)
		req.FirstName = "Renamed"
		req.Email = "renamed." + account.Username + "@example.com"

		resp, err := flow.UpdateProfile(context.Background(), account, req, testMetadata())
		require.NoError(t, err)
		assert.False(t, resp.ApprovalRequired)

		reloaded, err := accountRepo.ByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", reloaded.FirstName)
		assert.Equal(t, req.Email, reloaded.Email)
		assert.False(t, utils.IsTrue(reloaded.ProfileUpdatePending))
	})

	t.Run("RoleChangeIsStaged", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)

		req := updateRequestFor(account)
		req.FirstName = "Combined"
		req.CompanyRole = models.RoleSupervisor

		resp, err := flow.UpdateProfile(context.Background(), account, req, testMetadata())
		require.NoError(t, err)
		assert.True(t, resp.ApprovalRequired)
		assert.Equal(t, models.RoleSupervisor, resp.PendingChanges[models.ProfileFieldCompanyRole])
		// A sensitive change stages the whole edit, including the
		// otherwise-immediate fields.
		assert.Equal(t, "Combined", resp.PendingChanges[models.ProfileFieldFirstName])

		reloaded, err := accountRepo.ByID(context.Background(), account.ID)
		require.NoError(t, err)

		// Live fields untouched until an admin approves
		assert.Equal(t, models.RoleOperator, reloaded.CompanyRole)
		assert.NotEqual(t, "Combined", reloaded.FirstName)
		assert.True(t, utils.IsTrue(reloaded.ProfileUpdatePending))

		staged, err := reloaded.PendingChanges()
		require.NoError(t, err)
		assert.Equal(t, models.RoleSupervisor, staged[models.ProfileFieldCompanyRole])
		assert.ElementsMatch(t, []string{models.ProfileFieldFirstName, models.ProfileFieldCompanyRole}, []string(reloaded.PendingProfileFields))
	})

	t.Run("AdminRoleChangeAppliesImmediately", func(t *testing.T) {
		admin, err := fixtures.CreateAdminAccount()
		require.NoError(t, err)

		req := updateRequestFor(admin)
		req.Section = models.SectionQualityControl

		resp, err := flow.UpdateProfile(context.Background(), admin, req, testMetadata())
		require.NoError(t, err)
		assert.False(t, resp.ApprovalRequired)

		reloaded, err := accountRepo.ByID(context.Background(), admin.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SectionQualityControl, reloaded.Section)
		assert.False(t, utils.IsTrue(reloaded.ProfileUpdatePending))
	})

	t.Run("NoChangesRejected", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionPrinting)
		require.NoError(t, err)

		_, err = flow.UpdateProfile(context.Background(), account, updateRequestFor(account), testMetadata())
		require.Error(t, err)
		assert.True(t, IsNoProfileChanges(err))
	})

	t.Run("DeleteAccountRequiresConfirmation", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSales)
		require.NoError(t, err)

		_, err = flow.DeleteAccount(context.Background(), account, &dto.DeleteAccountRequest{Confirm: false}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("DeleteAccountSoftDeletesAndExpiresSessions", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSales)
		require.NoError(t, err)
		session, err := fixtures.CreateTestSession(account.ID)
		require.NoError(t, err)

		_, err = flow.DeleteAccount(context.Background(), account, &dto.DeleteAccountRequest{Confirm: true}, testMetadata())
		require.NoError(t, err)

		// Row survives as an inactive account
		reloaded, err := accountRepo.ByID(context.Background(), account.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded)
		assert.False(t, utils.IsTrue(reloaded.IsActive))

		// Open sessions are terminated
		stored, err := sessionRepo.BySessionToken(context.Background(), session.SessionToken)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.False(t, stored.IsValid())
	})
}
