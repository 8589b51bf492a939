package businessflow

import (
	"testing"
	"time"

	"github.com/plastiqc/accounts/app/services"
	testingutil "github.com/plastiqc/accounts/testing"
	"github.com/stretchr/testify/require"
)

// newFlowTestDB creates an isolated test database and registers its
// teardown. Tests are skipped when PostgreSQL is not reachable.
func newFlowTestDB(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures) {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("warning: failed to tear down test database: %v", err)
		}
	})

	return testDB, testingutil.NewTestFixtures(testDB)
}

func newTestTokenService(t *testing.T) services.TokenService {
	t.Helper()

	svc, err := services.NewTokenService(
		1*time.Hour,
		24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-that-is-long-enough-for-hmac",
		nil,
	)
	require.NoError(t, err)
	return svc
}

// stubCaptchaService always returns the configured verdict so flows can
// be tested without solving a rotation puzzle.
type stubCaptchaService struct {
	verdict bool
}

func (s *stubCaptchaService) Generate() (*services.RotateChallenge, error) {
	return &services.RotateChallenge{ID: "stub-challenge"}, nil
}

func (s *stubCaptchaService) Verify(challengeID string, userAngle float64) bool {
	return s.verdict
}

func testMetadata() *ClientMetadata {
	m := NewClientMetadata("127.0.0.1", "Test User Agent")
	m.SetRequestID("test-request-id")
	return m
}
