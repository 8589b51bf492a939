package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/repository"
	"github.com/plastiqc/accounts/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginFlow(t *testing.T) {
	testDB, fixtures := newFlowTestDB(t)

	accountRepo := repository.NewAccountRepository(testDB.DB)
	sessionRepo := repository.NewAccountSessionRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	flow := NewLoginFlow(accountRepo, sessionRepo, auditRepo, newTestTokenService(t), testDB.DB)

	t.Run("SuccessfulLogin", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)

		resp, err := flow.Login(context.Background(), &dto.LoginRequest{
			Username: account.Username,
			Password: "TestPass123!",
		}, testMetadata())
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.Equal(t, account.ID, resp.Account.ID)
		assert.NotEmpty(t, resp.Session.SessionToken)
		require.NotNil(t, resp.Session.RefreshToken)
		assert.NotEmpty(t, *resp.Session.RefreshToken)
		assert.Equal(t, "Bearer", resp.Session.TokenType)

		// Session persisted and valid
		session, err := sessionRepo.BySessionToken(context.Background(), resp.Session.SessionToken)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, account.ID, session.AccountID)
		assert.True(t, session.IsValid())

		// The full JWT is stored as the session token, not a truncation
		assert.Equal(t, resp.Session.SessionToken, session.SessionToken)
		assert.Greater(t, len(session.SessionToken), 255)

		// Last login timestamp recorded
		reloaded, err := accountRepo.ByID(context.Background(), account.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.LastLoginAt)
		assert.WithinDuration(t, time.Now().UTC(), *reloaded.LastLoginAt, time.Minute)

		// Successful login is audited
		entries, err := auditRepo.ListByAccount(context.Background(), account.ID, 10, 0)
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.Equal(t, models.AuditActionLogin, entries[0].Action)
		assert.True(t, utils.IsTrue(entries[0].Success))
	})

	t.Run("UnknownUsername", func(t *testing.T) {
		_, err := flow.Login(context.Background(), &dto.LoginRequest{
			Username: "no_such_user",
			Password: "TestPass123!",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsInvalidLogin(err))
		assert.False(t, IsAccountNotFound(err))
	})

	t.Run("WrongPassword", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionPrinting)
		require.NoError(t, err)

		_, err = flow.Login(context.Background(), &dto.LoginRequest{
			Username: account.Username,
			Password: "WrongPass123!",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsInvalidLogin(err))

		// Failed attempt is audited
		entries, err := auditRepo.ListByAccount(context.Background(), account.ID, 10, 0)
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.Equal(t, models.AuditActionLogin, entries[0].Action)
		assert.True(t, entries[0].IsFailed())
	})

	t.Run("UnknownUsernameIndistinguishableFromWrongPassword", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionQualityControl)
		require.NoError(t, err)

		_, unknownErr := flow.Login(context.Background(), &dto.LoginRequest{
			Username: "definitely_not_registered",
			Password: "TestPass123!",
		}, testMetadata())
		require.Error(t, unknownErr)

		_, wrongPassErr := flow.Login(context.Background(), &dto.LoginRequest{
			Username: account.Username,
			Password: "WrongPass123!",
		}, testMetadata())
		require.Error(t, wrongPassErr)

		// Both failures carry the identical code and message so the
		// response reveals nothing about which usernames exist
		var unknownBiz, wrongPassBiz *BusinessError
		require.ErrorAs(t, unknownErr, &unknownBiz)
		require.ErrorAs(t, wrongPassErr, &wrongPassBiz)
		assert.Equal(t, unknownBiz.Code, wrongPassBiz.Code)
		assert.Equal(t, unknownBiz.Message, wrongPassBiz.Message)
		assert.True(t, IsInvalidCredentials(unknownErr))
		assert.True(t, IsInvalidCredentials(wrongPassErr))
		assert.False(t, IsNotFound(unknownErr))
	})

	t.Run("PendingApprovalBlocked", func(t *testing.T) {
		account, err := fixtures.CreatePendingAccount(models.RoleOperator, models.SectionSlitting)
		require.NoError(t, err)

		_, err = flow.Login(context.Background(), &dto.LoginRequest{
			Username: account.Username,
			Password: "TestPass123!",
		}, testMetadata())
		require.Error(t, err)

		// Pending approval is distinct from bad credentials
		assert.True(t, IsPendingApproval(err))
		assert.False(t, IsInvalidCredentials(err))
	})

	t.Run("InactiveAccountBlocked", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionLamination)
		require.NoError(t, err)
		account.IsActive = utils.ToPtr(false)
		require.NoError(t, testDB.DB.Save(account).Error)

		_, err = flow.Login(context.Background(), &dto.LoginRequest{
			Username: account.Username,
			Password: "TestPass123!",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountInactive(err))
	})

	t.Run("Logout", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleManager, models.SectionSales)
		require.NoError(t, err)

		resp, err := flow.Login(context.Background(), &dto.LoginRequest{
			Username: account.Username,
			Password: "TestPass123!",
		}, testMetadata())
		require.NoError(t, err)

		_, err = flow.Logout(context.Background(), account, resp.Session.SessionToken, testMetadata())
		require.NoError(t, err)

		session, err := sessionRepo.BySessionToken(context.Background(), resp.Session.SessionToken)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.False(t, session.IsValid())
	})

	t.Run("LogoutForeignSessionRejected", func(t *testing.T) {
		owner, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionBagMaking)
		require.NoError(t, err)
		session, err := fixtures.CreateTestSession(owner.ID)
		require.NoError(t, err)

		intruder, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionMaintenance)
		require.NoError(t, err)

		_, err = flow.Logout(context.Background(), intruder, session.SessionToken, testMetadata())
		require.Error(t, err)
		assert.True(t, IsSessionNotFound(err))
	})
}
