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
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordResetFlow(t *testing.T) {
	testDB, fixtures := newFlowTestDB(t)

	accountRepo := repository.NewAccountRepository(testDB.DB)
	sessionRepo := repository.NewAccountSessionRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)
	resetRepo := repository.NewPasswordResetRequestRepository(testDB.DB)

	flow := NewPasswordResetFlow(accountRepo, resetRepo, sessionRepo, auditRepo, &stubCaptchaService{verdict: true}, bcrypt.MinCost, testDB.DB)

	t.Run("ForgotPassword", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)

		resp, err := flow.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{
			Username:           account.Username,
			Reason:             "Forgot my password after annual leave",
			CaptchaChallengeID: "stub-challenge",
			CaptchaAngle:       42,
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.ResetStatusPending, resp.Request.Status)
		assert.Equal(t, account.Username, resp.Request.Username)
		assert.Equal(t, account.Username, resp.Request.RequestedBy)
	})

	t.Run("ForgotPasswordUnknownUsername", func(t *testing.T) {
		_, err := flow.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{
			Username:           "nobody_here",
			Reason:             "Forgot my password",
			CaptchaChallengeID: "stub-challenge",
			CaptchaAngle:       42,
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountNotFound(err))
	})

	t.Run("ForgotPasswordInactiveAccount", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)
		account.IsActive = utils.ToPtr(false)
		require.NoError(t, accountRepo.Update(context.Background(), account))

		_, err = flow.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{
			Username:           account.Username,
			Reason:             "Forgot my password",
			CaptchaChallengeID: "stub-challenge",
			CaptchaAngle:       42,
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountNotFound(err))
	})

	t.Run("ForgotPasswordFailedCaptcha", func(t *testing.T) {
		failing := NewPasswordResetFlow(accountRepo, resetRepo, sessionRepo, auditRepo, &stubCaptchaService{verdict: false}, bcrypt.MinCost, testDB.DB)

		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionExtrusion)
		require.NoError(t, err)

		_, err = failing.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{
			Username:           account.Username,
			Reason:             "Forgot my password",
			CaptchaChallengeID: "stub-challenge",
			CaptchaAngle:       42,
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsCaptchaFailed(err))
	})

	t.Run("RequestResetForSelf", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionPrinting)
		require.NoError(t, err)

		resp, err := flow.RequestReset(context.Background(), account, &dto.RequestPasswordResetRequest{
			Reason: "Suspect my password leaked",
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.ResetStatusPending, resp.Request.Status)
		assert.Equal(t, account.Username, resp.Request.Username)
	})

	t.Run("RequestResetForOtherRequiresAdmin", func(t *testing.T) {
		requester, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionPrinting)
		require.NoError(t, err)
		other, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionPrinting)
		require.NoError(t, err)

		_, err = flow.RequestReset(context.Background(), requester, &dto.RequestPasswordResetRequest{
			AccountID: &other.ID,
			Reason:    "Trying to reset a colleague's password",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsResetNotForSelf(err))

		admin, err := fixtures.CreateAdminAccount()
		require.NoError(t, err)

		resp, err := flow.RequestReset(context.Background(), admin, &dto.RequestPasswordResetRequest{
			AccountID: &other.ID,
			Reason:    "Operator locked out on the floor",
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, other.Username, resp.Request.Username)
		assert.Equal(t, admin.Username, resp.Request.RequestedBy)
	})

	t.Run("EmptyReasonRejected", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionPrinting)
		require.NoError(t, err)

		_, err = flow.RequestReset(context.Background(), account, &dto.RequestPasswordResetRequest{
			Reason: "   ",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("ListForReviewRequiresAdmin", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSales)
		require.NoError(t, err)

		_, err = flow.ListForReview(context.Background(), account)
		require.Error(t, err)
		assert.True(t, IsAdminRequired(err))

		admin, err := fixtures.CreateAdminAccount()
		require.NoError(t, err)

		resp, err := flow.ListForReview(context.Background(), admin)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, resp.TotalPending, int64(0))
	})

	t.Run("ReviewApprovesPendingRequest", func(t *testing.T) {
		admin, err := fixtures.CreateAdminAccount()
		require.NoError(t, err)
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionLamination)
		require.NoError(t, err)
		request, err := fixtures.CreateTestResetRequest(account.ID, account.ID, models.ResetStatusPending)
		require.NoError(t, err)

		notes := "Verified in person"
		resp, err := flow.Review(context.Background(), admin, request.ID, &dto.ReviewPasswordResetRequest{
			Status:     models.ResetStatusApproved,
			AdminNotes: &notes,
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.ResetStatusApproved, resp.Request.Status)

		stored, err := resetRepo.ByID(context.Background(), request.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ResetStatusApproved, stored.Status)
		require.NotNil(t, stored.ReviewedByID)
		assert.Equal(t, admin.ID, *stored.ReviewedByID)
		assert.NotNil(t, stored.ReviewedAt)
	})

	t.Run("ReviewRejectsPendingRequest", func(t *testing.T) {
		admin, err := fixtures.CreateAdminAccount()
		require.NoError(t, err)
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionLamination)
		require.NoError(t, err)
		request, err := fixtures.CreateTestResetRequest(account.ID, account.ID, models.ResetStatusPending)
		require.NoError(t, err)

		resp, err := flow.Review(context.Background(), admin, request.ID, &dto.ReviewPasswordResetRequest{
			Status: models.ResetStatusRejected,
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.ResetStatusRejected, resp.Request.Status)
	})

	t.Run("ReviewNonPendingReportsNotFound", func(t *testing.T) {
		admin, err := fixtures.CreateAdminAccount()
		require.NoError(t, err)
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionLamination)
		require.NoError(t, err)
		request, err := fixtures.CreateTestResetRequest(account.ID, account.ID, models.ResetStatusCompleted)
		require.NoError(t, err)

		_, err = flow.Review(context.Background(), admin, request.ID, &dto.ReviewPasswordResetRequest{
			Status: models.ResetStatusApproved,
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsResetRequestNotFound(err))
	})

	t.Run("ReviewInvalidStatusRejected", func(t *testing.T) {
		admin, err := fixtures.CreateAdminAccount()
		require.NoError(t, err)
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionLamination)
		require.NoError(t, err)
		request, err := fixtures.CreateTestResetRequest(account.ID, account.ID, models.ResetStatusPending)
		require.NoError(t, err)

		_, err = flow.Review(context.Background(), admin, request.ID, &dto.ReviewPasswordResetRequest{
			Status: "COMPLETED",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsInvalidReviewStatus(err))
	})

	t.Run("CompleteSetsPasswordAndExpiresSessions", func(t *testing.T) {
		admin, err := fixtures.CreateAdminAccount()
		require.NoError(t, err)
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSlitting)
		require.NoError(t, err)
		session, err := fixtures.CreateTestSession(account.ID)
		require.NoError(t, err)
		request, err := fixtures.CreateTestResetRequest(account.ID, account.ID, models.ResetStatusApproved)
		require.NoError(t, err)

		resp, err := flow.Complete(context.Background(), admin, request.ID, &dto.CompletePasswordResetRequest{
			NewPassword:     "BrandNewPass1",
			ConfirmPassword: "BrandNewPass1",
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.ResetStatusCompleted, resp.Request.Status)

		reloaded, err := accountRepo.ByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.PasswordHash), []byte("BrandNewPass1")))

		stored, err := sessionRepo.BySessionToken(context.Background(), session.SessionToken)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.False(t, stored.IsValid())

		// Terminal state, cannot be completed twice
		_, err = flow.Complete(context.Background(), admin, request.ID, &dto.CompletePasswordResetRequest{
			NewPassword:     "AnotherPass1",
			ConfirmPassword: "AnotherPass1",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsResetRequestNotFound(err))
	})

	t.Run("CompletePasswordMismatch", func(t *testing.T) {
		admin, err := fixtures.CreateAdminAccount()
		require.NoError(t, err)

		_, err = flow.Complete(context.Background(), admin, 1, &dto.CompletePasswordResetRequest{
			NewPassword:     "BrandNewPass1",
			ConfirmPassword: "SomethingElse1",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsPasswordMismatch(err))
	})

	t.Run("CompleteRequiresAdmin", func(t *testing.T) {
		account, err := fixtures.CreateTestAccount(models.RoleOperator, models.SectionSlitting)
		require.NoError(t, err)

		_, err = flow.Complete(context.Background(), account, 1, &dto.CompletePasswordResetRequest{
			NewPassword:     "BrandNewPass1",
			ConfirmPassword: "BrandNewPass1",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAdminRequired(err))
	})
}
