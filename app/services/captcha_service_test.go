package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptchaService(t *testing.T) {
	svc, err := NewCaptchaService(2*time.Minute, 10, 220)
	require.NoError(t, err)

	t.Run("Generate", func(t *testing.T) {
		challenge, err := svc.Generate()
		require.NoError(t, err)
		assert.NotEmpty(t, challenge.ID)
		assert.NotEmpty(t, challenge.MasterImageBase64)
		assert.NotEmpty(t, challenge.ThumbImageBase64)

		// Each challenge gets its own ID
		other, err := svc.Generate()
		require.NoError(t, err)
		assert.NotEqual(t, challenge.ID, other.ID)
	})

	t.Run("UnknownChallengeFails", func(t *testing.T) {
		assert.False(t, svc.Verify("no-such-challenge", 90))
	})

	t.Run("ChallengeIsConsumed", func(t *testing.T) {
		challenge, err := svc.Generate()
		require.NoError(t, err)

		// Whatever the verdict of the first attempt, the challenge is
		// gone afterwards and a retry must fail.
		svc.Verify(challenge.ID, 90)
		assert.False(t, svc.Verify(challenge.ID, 90))
	})

	t.Run("ExpiredChallengeFails", func(t *testing.T) {
		shortLived, err := NewCaptchaService(time.Millisecond, 10, 220)
		require.NoError(t, err)

		challenge, err := shortLived.Generate()
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		assert.False(t, shortLived.Verify(challenge.ID, 90))
	})
}
