package businessflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lib/pq"
	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/repository"
	"github.com/plastiqc/accounts/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageProfileChanges(t *testing.T, repo repository.AccountRepository, account *models.Account, changes map[string]string) {
	t.Helper()

	data, err := json.Marshal(changes)
	require.NoError(t, err)

	fields := make(pq.StringArray, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}

	account.ProfileUpdatePending = utils.ToPtr(true)
	account.PendingProfileData = data
	account.PendingProfileFields = fields
	require.NoError(t, repo.Update(context.Background(), account))
}

func TestAdminAccountFlow(t *testing.T) {
	testDB, fixtures := newFlowTestDB(t)

	accountRepo := repository.NewAccountRepository(testDB.DB)
	sessionRepo := repository.NewAccountSessionRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)
	resetRepo := repository.NewPasswordResetRequestRepository(testDB.DB)

	flow := NewAdminAccountFlow(accountRepo, sessionRepo, resetRepo, auditRepo, testDB.DB)

	admin, err := fixtures.CreateAdminAccount()
	require.NoError(t, err)

	t.Run("NonAdminIsRejectedEverywhere", func(t *testing.T) {
		operator, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)

		_, err = flow.ListAccounts(context.Background(), operator, &dto.AdminListAccountsRequest{})
		assert.True(t, IsAdminRequired(err))

		_, err = flow.ApprovalQueue(context.Background(), operator)
		assert.True(t, IsAdminRequired(err))

		_, err = flow.ApproveAccount(context.Background(), operator, admin.ID, testMetadata())
		assert.True(t, IsAdminRequired(err))

		_, err = flow.Dashboard(context.Background(), operator)
		assert.True(t, IsAdminRequired(err))
	})

	t.Run("ApproveAccount", func(t *testing.T) {
		pending, err := fixtures.CreatePendingAccount(models.RoleOperator, models.SectionPrinting)
		require.NoError(t, err)

		resp, err := flow.ApproveAccount(context.Background(), admin, pending.ID, testMetadata())
		require.NoError(t, err)
		assert.True(t, utils.IsTrue(resp.Account.IsApproved))

		reloaded, err := accountRepo.ByID(context.Background(), pending.ID)
		require.NoError(t, err)
		assert.True(t, utils.IsTrue(reloaded.IsApproved))
		require.NotNil(t, reloaded.ApprovedByID)
		assert.Equal(t, admin.ID, *reloaded.ApprovedByID)
		require.NotNil(t, reloaded.ApprovedAt)
		firstApproval := *reloaded.ApprovedAt

		// Re-approving succeeds without touching the original metadata
		otherAdmin, err := fixtures.CreateAdminAccount()
		require.NoError(t, err)
		_, err = flow.ApproveAccount(context.Background(), otherAdmin, pending.ID, testMetadata())
		require.NoError(t, err)

		reloaded, err = accountRepo.ByID(context.Background(), pending.ID)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, *reloaded.ApprovedByID)
		assert.True(t, firstApproval.Equal(*reloaded.ApprovedAt))
	})

	t.Run("RejectAccountRequiresPending", func(t *testing.T) {
		pending, err := fixtures.CreatePendingAccount(models.RoleOperator, models.SectionPrinting)
		require.NoError(t, err)

		_, err = flow.RejectAccount(context.Background(), admin, pending.ID, testMetadata())
		require.NoError(t, err)

		reloaded, err := accountRepo.ByID(context.Background(), pending.ID)
		require.NoError(t, err)
		assert.False(t, utils.IsTrue(reloaded.IsActive))

		// Already rejected, no longer pending
		_, err = flow.RejectAccount(context.Background(), admin, pending.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountNotPending(err))

		approved, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionPrinting)
		require.NoError(t, err)
		_, err = flow.RejectAccount(context.Background(), admin, approved.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountNotPending(err))
	})

	t.Run("BulkApproveAccounts", func(t *testing.T) {
		first, err := fixtures.CreatePendingAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)
		second, err := fixtures.CreatePendingAccount(models.RoleOperator, models.SectionPrinting)
		require.NoError(t, err)

		approved, err := fixtures.CreatePendingAccount(models.RoleOperator, models.SectionLamination)
		require.NoError(t, err)
		_, err = flow.ApproveAccount(context.Background(), admin, approved.ID, testMetadata())
		require.NoError(t, err)
		withMetadata, err := accountRepo.ByID(context.Background(), approved.ID)
		require.NoError(t, err)
		firstApproval := *withMetadata.ApprovedAt

		operator, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSales)
		require.NoError(t, err)
		_, err = flow.BulkApproveAccounts(context.Background(), operator, &dto.AdminBulkActionRequest{
			AccountIDs: []uint{first.ID},
		}, testMetadata())
		assert.True(t, IsAdminRequired(err))

		// Already-approved and unknown IDs are skipped, not errors
		resp, err := flow.BulkApproveAccounts(context.Background(), admin, &dto.AdminBulkActionRequest{
			AccountIDs: []uint{first.ID, second.ID, approved.ID, 999999},
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Affected)

		for _, id := range []uint{first.ID, second.ID} {
			reloaded, err := accountRepo.ByID(context.Background(), id)
			require.NoError(t, err)
			assert.True(t, utils.IsTrue(reloaded.IsApproved))
			require.NotNil(t, reloaded.ApprovedByID)
			assert.Equal(t, admin.ID, *reloaded.ApprovedByID)
			require.NotNil(t, reloaded.ApprovedAt)
		}

		// Prior approval metadata survives the bulk pass
		withMetadata, err = accountRepo.ByID(context.Background(), approved.ID)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, *withMetadata.ApprovedByID)
		assert.True(t, firstApproval.Equal(*withMetadata.ApprovedAt))
	})

	t.Run("BulkRejectAccounts", func(t *testing.T) {
		first, err := fixtures.CreatePendingAccount(models.RoleOperator, models.SectionSlitting)
		require.NoError(t, err)
		second, err := fixtures.CreatePendingAccount(models.RoleOperator, models.SectionBagMaking)
		require.NoError(t, err)
		approved, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionMaintenance)
		require.NoError(t, err)

		operator, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSales)
		require.NoError(t, err)
		_, err = flow.BulkRejectAccounts(context.Background(), operator, &dto.AdminBulkActionRequest{
			AccountIDs: []uint{first.ID},
		}, testMetadata())
		assert.True(t, IsAdminRequired(err))

		// Only pending accounts are rejected
		resp, err := flow.BulkRejectAccounts(context.Background(), admin, &dto.AdminBulkActionRequest{
			AccountIDs: []uint{first.ID, second.ID, approved.ID},
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Affected)

		for _, id := range []uint{first.ID, second.ID} {
			reloaded, err := accountRepo.ByID(context.Background(), id)
			require.NoError(t, err)
			assert.False(t, utils.IsTrue(reloaded.IsActive))
		}

		reloaded, err := accountRepo.ByID(context.Background(), approved.ID)
		require.NoError(t, err)
		assert.True(t, utils.IsTrue(reloaded.IsActive))
	})

	t.Run("DeactivateAndReactivate", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSales)
		require.NoError(t, err)
		session, err := fixtures.CreateTestSession(account.ID)
		require.NoError(t, err)

		_, err = flow.DeactivateAccount(context.Background(), admin, account.ID, testMetadata())
		require.NoError(t, err)

		reloaded, err := accountRepo.ByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.False(t, utils.IsTrue(reloaded.IsActive))

		stored, err := sessionRepo.BySessionToken(context.Background(), session.SessionToken)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.False(t, stored.IsValid())

		_, err = flow.ActivateAccount(context.Background(), admin, account.ID, testMetadata())
		require.NoError(t, err)

		reloaded, err = accountRepo.ByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.True(t, utils.IsTrue(reloaded.IsActive))

		// Activating an already-active account is an error
		_, err = flow.ActivateAccount(context.Background(), admin, account.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountNotInactive(err))
	})

	t.Run("ListAccountsFilters", func(t *testing.T) {
		_, err := fixtures.CreatePendingAccount(models.RoleQCTechnician, models.SectionQualityControl)
		require.NoError(t, err)

		resp, err := flow.ListAccounts(context.Background(), admin, &dto.AdminListAccountsRequest{Status: "pending"})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, resp.Total, int64(1))
		for _, a := range resp.Accounts {
			assert.False(t, utils.IsTrue(a.IsApproved))
		}

		_, err = flow.ListAccounts(context.Background(), admin, &dto.AdminListAccountsRequest{Status: "bogus"})
		require.Error(t, err)

		_, err = flow.ListAccounts(context.Background(), admin, &dto.AdminListAccountsRequest{Role: "janitor"})
		require.Error(t, err)
	})

	t.Run("ApprovalQueue", func(t *testing.T) {
		pending, err := fixtures.CreatePendingAccount(models.RoleOperator, models.SectionLamination)
		require.NoError(t, err)

		resp, err := flow.ApprovalQueue(context.Background(), admin)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, resp.TotalPending, int64(1))

		found := false
		for _, a := range resp.Pending {
			if a.Username == pending.Username {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("ApproveProfileUpdate", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)
		stageProfileChanges(t, accountRepo, account, map[string]string{
			models.ProfileFieldCompanyRole: models.RoleSupervisor,
			models.ProfileFieldFirstName:   "Promoted",
			"is_superuser":                 "true",
		})

		list, err := flow.ListProfileUpdates(context.Background(), admin)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, list.TotalPending, int64(1))

		_, err = flow.ApproveProfileUpdate(context.Background(), admin, account.ID, testMetadata())
		require.NoError(t, err)

		reloaded, err := accountRepo.ByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleSupervisor, reloaded.CompanyRole)
		assert.Equal(t, "Promoted", reloaded.FirstName)
		// The unknown key staged above must not grant privileges
		assert.False(t, utils.IsTrue(reloaded.IsSuperuser))
		assert.False(t, utils.IsTrue(reloaded.ProfileUpdatePending))
		assert.Empty(t, reloaded.PendingProfileData)
		assert.Empty(t, reloaded.PendingProfileFields)

		// Nothing staged anymore
		_, err = flow.ApproveProfileUpdate(context.Background(), admin, account.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsNoPendingProfileData(err))
	})

	t.Run("RejectProfileUpdate", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)
		originalRole := account.CompanyRole
		stageProfileChanges(t, accountRepo, account, map[string]string{
			models.ProfileFieldCompanyRole: models.RoleManager,
		})

		_, err = flow.RejectProfileUpdate(context.Background(), admin, account.ID, testMetadata())
		require.NoError(t, err)

		reloaded, err := accountRepo.ByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, originalRole, reloaded.CompanyRole)
		assert.False(t, utils.IsTrue(reloaded.ProfileUpdatePending))
		assert.Empty(t, reloaded.PendingProfileData)
	})

	t.Run("UserActivity", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSlitting)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(&account.ID, models.AuditActionLogin, true)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(&account.ID, models.AuditActionLogin, false)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(&account.ID, models.AuditActionLogout, true)
		require.NoError(t, err)

		resp, err := flow.UserActivity(context.Background(), admin, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.TotalActions)
		assert.Equal(t, int64(2), resp.ActionCounts[models.AuditActionLogin])
		assert.Len(t, resp.Entries, 3)
	})

	t.Run("SystemActivityFilters", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSlitting)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(&account.ID, models.AuditActionCalculation, true)
		require.NoError(t, err)

		resp, err := flow.SystemActivity(context.Background(), admin, &dto.AdminSystemActivityRequest{
			Action: models.AuditActionCalculation,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, resp.Total, int64(1))
		for _, e := range resp.Entries {
			assert.Equal(t, models.AuditActionCalculation, e.Action)
		}

		_, err = flow.SystemActivity(context.Background(), admin, &dto.AdminSystemActivityRequest{
			Action: "made_coffee",
		})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		// Inverted date range
		_, err = flow.SystemActivity(context.Background(), admin, &dto.AdminSystemActivityRequest{
			DateFrom: "2026-02-01",
			DateTo:   "2026-01-01",
		})
		require.Error(t, err)

		_, err = flow.SystemActivity(context.Background(), admin, &dto.AdminSystemActivityRequest{
			DateFrom: "not-a-date",
		})
		require.Error(t, err)
	})

	t.Run("ExportActivity", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSlitting)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(&account.ID, models.AuditActionLogin, true)
		require.NoError(t, err)

		filename, content, err := flow.ExportActivity(context.Background(), admin, &dto.AdminSystemActivityRequest{})
		require.NoError(t, err)
		assert.Contains(t, filename, "activity_export_")
		assert.Contains(t, filename, ".xlsx")
		// xlsx files are zip archives
		require.Greater(t, len(content), 4)
		assert.Equal(t, []byte{'P', 'K'}, content[:2])
	})

	t.Run("Dashboard", func(t *testing.T) {
		_, err := fixtures.CreatePendingAccount(models.RoleOperator, models.SectionBagMaking)
		require.NoError(t, err)
		resetAccount, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionBagMaking)
		require.NoError(t, err)
		_, err = fixtures.CreateTestResetRequest(resetAccount.ID, resetAccount.ID, models.ResetStatusPending)
		require.NoError(t, err)

		resp, err := flow.Dashboard(context.Background(), admin)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, resp.TotalAccounts, int64(2))
		assert.GreaterOrEqual(t, resp.PendingApprovals, int64(1))
		assert.GreaterOrEqual(t, resp.ApprovedAccounts, int64(1))
		assert.GreaterOrEqual(t, resp.PendingPasswordResets, int64(1))
		assert.GreaterOrEqual(t, resp.RoleDistribution[models.RoleOperator], int64(1))
		assert.NotEmpty(t, resp.RecentRegistrations)
	})
}
