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

func newRegisterRequest() *dto.RegisterRequest {
	phone := "+256701234567"
	return &dto.RegisterRequest{
		Username:           "jkasozi",
		FirstName:          "James",
		LastName:           "Kasozi",
		Email:              "james.kasozi@example.com",
		PhoneNumber:        &phone,
		CompanyBranch:      models.BranchKawempe,
		CompanyRole:        models.RoleOperator,
		Section:            models.SectionExtrusion,
		Password:           "StrongPass1",
		ConfirmPassword:    "StrongPass1",
		CaptchaChallengeID: "stub-challenge",
		CaptchaAngle:       42,
	}
}

func TestRegistrationFlow(t *testing.T) {
	testDB, _ := newFlowTestDB(t)

	accountRepo := repository.NewAccountRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	flow := NewRegistrationFlow(accountRepo, auditRepo, &stubCaptchaService{verdict: true}, bcrypt.DefaultCost, testDB.DB)

	t.Run("SuccessfulRegistration", func(t *testing.T) {
		req := newRegisterRequest()

		resp, err := flow.Register(context.Background(), req, testMetadata())
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.NotZero(t, resp.AccountID)
		assert.Equal(t, req.Username, resp.Account.Username)

		created, err := accountRepo.ByUsername(context.Background(), req.Username)
		require.NoError(t, err)
		require.NotNil(t, created)

		// New registrations start active but unapproved
		assert.True(t, utils.IsTrue(created.IsActive))
		assert.False(t, utils.IsTrue(created.IsApproved))
		assert.False(t, utils.IsTrue(created.IsStaff))
		assert.True(t, created.IsPendingApproval())

		// Password is stored hashed
		assert.NotEqual(t, req.Password, created.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(req.Password)))

		// Registration is audited
		entries, err := auditRepo.ListByAccount(context.Background(), created.ID, 10, 0)
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.Equal(t, models.AuditActionAccountCreate, entries[0].Action)
		assert.True(t, utils.IsTrue(entries[0].Success))
	})

	t.Run("AdminRoleRegistrationIsAutoApproved", func(t *testing.T) {
		req := newRegisterRequest()
		req.Username = "adminuser"
		req.Email = "admin.user@example.com"
		req.CompanyRole = models.RoleAdmin
		req.Section = models.SectionOther

		resp, err := flow.Register(context.Background(), req, testMetadata())
		require.NoError(t, err)

		created, err := accountRepo.ByUsername(context.Background(), req.Username)
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, resp.AccountID, created.ID)

		// The save hook promotes admin-role accounts
		assert.True(t, utils.IsTrue(created.IsApproved))
		assert.True(t, utils.IsTrue(created.IsStaff))
		assert.False(t, created.IsPendingApproval())
	})

	t.Run("DuplicateUsernameRejected", func(t *testing.T) {
		req := newRegisterRequest()
		req.Username = "duplicated"
		req.Email = "first.holder@example.com"
		_, err := flow.Register(context.Background(), req, testMetadata())
		require.NoError(t, err)

		again := newRegisterRequest()
		again.Username = "duplicated"
		again.Email = "second.holder@example.com"
		_, err = flow.Register(context.Background(), again, testMetadata())
		require.Error(t, err)
		assert.True(t, IsUsernameAlreadyExists(err))
	})

	t.Run("DuplicateEmailRejected", func(t *testing.T) {
		req := newRegisterRequest()
		req.Username = "emailowner"
		req.Email = "shared@example.com"
		_, err := flow.Register(context.Background(), req, testMetadata())
		require.NoError(t, err)

		again := newRegisterRequest()
		again.Username = "otheruser"
		again.Email = "shared@example.com"
		_, err = flow.Register(context.Background(), again, testMetadata())
		require.Error(t, err)
		assert.True(t, IsEmailAlreadyExists(err))
	})

	t.Run("InvalidRoleRejected", func(t *testing.T) {
		req := newRegisterRequest()
		req.Username = "badrole"
		req.Email = "bad.role@example.com"
		req.CompanyRole = "janitor"

		_, err := flow.Register(context.Background(), req, testMetadata())
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("PasswordMismatchRejected", func(t *testing.T) {
		req := newRegisterRequest()
		req.Username = "mismatch"
		req.Email = "mismatch@example.com"
		req.ConfirmPassword = "SomethingElse1"

		_, err := flow.Register(context.Background(), req, testMetadata())
		require.Error(t, err)
		assert.True(t, IsPasswordMismatch(err))
	})

	t.Run("FailedCaptchaRejected", func(t *testing.T) {
		failing := NewRegistrationFlow(accountRepo, auditRepo, &stubCaptchaService{verdict: false}, bcrypt.DefaultCost, testDB.DB)

		req := newRegisterRequest()
		req.Username = "captchafail"
		req.Email = "captcha.fail@example.com"

		_, err := failing.Register(context.Background(), req, testMetadata())
		require.Error(t, err)
		assert.True(t, IsCaptchaFailed(err))
	})
}
