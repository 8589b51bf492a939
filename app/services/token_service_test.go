// Package services provides external service integrations and technical concerns like captchas and tokens
package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRevocationStore is an in-memory RevocationStore for tests
type memoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemoryRevocationStore() *memoryRevocationStore {
	return &memoryRevocationStore{revoked: make(map[string]time.Time)}
}

func (m *memoryRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = time.Now().Add(ttl)
	return nil
}

func (m *memoryRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[tokenID]
	return ok && time.Now().Before(until), nil
}

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(revocations RevocationStore) (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		"test-secret-key-for-jwt-signing-32-chars", // secretKey
		revocations,
	)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		secretKey   string
		expectError bool
	}{
		{
			name:        "valid symmetric key configuration",
			useRSAKeys:  false,
			secretKey:   "test-secret-key-for-jwt-signing-32-chars",
			expectError: false,
		},
		{
			name:        "missing secret key",
			useRSAKeys:  false,
			secretKey:   "",
			expectError: true,
		},
		{
			name:        "RSA mode without keys",
			useRSAKeys:  true,
			secretKey:   "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(
				15*time.Minute,
				7*24*time.Hour,
				"test-issuer",
				"test-audience",
				tt.useRSAKeys,
				"",
				"",
				tt.secretKey,
				nil,
			)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateTokens(t *testing.T) {
	service, err := createTestTokenService(nil)
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(123)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
	assert.NotEqual(t, accessToken, refreshToken)

	// Tokens should be valid JWT format
	assert.Contains(t, accessToken, "eyJ")
	assert.Contains(t, refreshToken, "eyJ")
}

func TestValidateToken(t *testing.T) {
	service, err := createTestTokenService(nil)
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(123)
	require.NoError(t, err)

	tests := []struct {
		name         string
		token        string
		expectError  bool
		expectClaims *TokenClaims
	}{
		{
			name:        "valid access token",
			token:       accessToken,
			expectError: false,
			expectClaims: &TokenClaims{
				AccountID: 123,
				TokenType: "access",
			},
		},
		{
			name:        "valid refresh token",
			token:       refreshToken,
			expectError: false,
			expectClaims: &TokenClaims{
				AccountID: 123,
				TokenType: "refresh",
			},
		},
		{
			name:        "empty token",
			token:       "",
			expectError: true,
		},
		{
			name:        "invalid token format",
			token:       "invalid.token.format",
			expectError: true,
		},
		{
			name:        "malformed token",
			token:       "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(context.Background(), tt.token)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, claims)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, claims)

				assert.Equal(t, tt.expectClaims.AccountID, claims.AccountID)
				assert.Equal(t, tt.expectClaims.TokenType, claims.TokenType)
				assert.NotEmpty(t, claims.TokenID)
				assert.False(t, claims.IssuedAt.IsZero())
				assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
			}
		})
	}
}

func TestRefreshToken(t *testing.T) {
	service, err := createTestTokenService(nil)
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(123)
	require.NoError(t, err)

	t.Run("valid refresh token", func(t *testing.T) {
		newAccessToken, newRefreshToken, err := service.RefreshToken(context.Background(), refreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, newAccessToken)
		assert.NotEmpty(t, newRefreshToken)
		assert.NotEqual(t, newAccessToken, newRefreshToken)

		claims, err := service.ValidateToken(context.Background(), newAccessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(123), claims.AccountID)
	})

	t.Run("access token instead of refresh token", func(t *testing.T) {
		_, _, err := service.RefreshToken(context.Background(), accessToken)
		assert.Error(t, err)
	})

	t.Run("invalid refresh token", func(t *testing.T) {
		_, _, err := service.RefreshToken(context.Background(), "invalid.token")
		assert.Error(t, err)
	})
}

func TestRevokeToken(t *testing.T) {
	store := newMemoryRevocationStore()
	service, err := createTestTokenService(store)
	require.NoError(t, err)

	accessToken, _, err := service.GenerateTokens(123)
	require.NoError(t, err)

	// Valid until revoked
	_, err = service.ValidateToken(context.Background(), accessToken)
	require.NoError(t, err)

	require.NoError(t, service.RevokeToken(context.Background(), accessToken))

	claims, err := service.ValidateToken(context.Background(), accessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.Nil(t, claims)

	// Revoking an already-revoked token is a no-op
	assert.NoError(t, service.RevokeToken(context.Background(), accessToken))

	// Garbage tokens cannot be revoked
	assert.Error(t, service.RevokeToken(context.Background(), "invalid.token"))
}

func TestTokenExpiration(t *testing.T) {
	// Negative TTL produces tokens that are already expired
	service, err := NewTokenService(-time.Minute, -time.Minute, "test-issuer", "test-audience", false, "", "", "test-secret-key-for-jwt-signing-32-chars", nil)
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(123)
	require.NoError(t, err)

	claims, err := service.ValidateToken(context.Background(), accessToken)
	assert.Error(t, err)
	assert.Nil(t, claims)

	_, _, err = service.RefreshToken(context.Background(), refreshToken)
	assert.Error(t, err)
}

func TestTokenSecurity(t *testing.T) {
	service1, err := NewTokenService(15*time.Minute, 7*24*time.Hour, "issuer1", "audience1", false, "", "", "test-secret-key-1-for-jwt-signing-32-chars", nil)
	require.NoError(t, err)

	service2, err := NewTokenService(15*time.Minute, 7*24*time.Hour, "issuer2", "audience2", false, "", "", "test-secret-key-2-for-jwt-signing-32-chars", nil)
	require.NoError(t, err)

	token1, _, err := service1.GenerateTokens(123)
	require.NoError(t, err)

	token2, _, err := service2.GenerateTokens(123)
	require.NoError(t, err)

	assert.NotEqual(t, token1, token2)

	// Tokens from one service should not be valid in another service
	claims, err := service1.ValidateToken(context.Background(), token2)
	assert.Error(t, err)
	assert.Nil(t, claims)

	claims, err = service2.ValidateToken(context.Background(), token1)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestTokenClaimsStructure(t *testing.T) {
	service, err := createTestTokenService(nil)
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(456)
	require.NoError(t, err)

	accessClaims, err := service.ValidateToken(context.Background(), accessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(456), accessClaims.AccountID)
	assert.Equal(t, "access", accessClaims.TokenType)
	assert.NotEmpty(t, accessClaims.TokenID)

	refreshClaims, err := service.ValidateToken(context.Background(), refreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint(456), refreshClaims.AccountID)
	assert.Equal(t, "refresh", refreshClaims.TokenType)

	// Token IDs should be different
	assert.NotEqual(t, accessClaims.TokenID, refreshClaims.TokenID)
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service, err := createTestTokenService(nil)
	require.NoError(t, err)

	const numGoroutines = 10
	tokens := make(chan string, numGoroutines)
	errors := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(accountID uint) {
			accessToken, _, err := service.GenerateTokens(accountID)
			if err != nil {
				errors <- err
				return
			}
			tokens <- accessToken
		}(uint(i + 1))
	}

	generatedTokens := make(map[string]bool)
	for i := 0; i < numGoroutines; i++ {
		select {
		case token := <-tokens:
			assert.NotEmpty(t, token)
			assert.False(t, generatedTokens[token], "Duplicate token generated")
			generatedTokens[token] = true
		case err := <-errors:
			t.Errorf("Error generating token: %v", err)
		}
	}

	assert.Equal(t, numGoroutines, len(generatedTokens))
}

func BenchmarkGenerateTokens(b *testing.B) {
	service, err := createTestTokenService(nil)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := service.GenerateTokens(uint(i))
		require.NoError(b, err)
	}
}

func BenchmarkValidateToken(b *testing.B) {
	service, err := createTestTokenService(nil)
	require.NoError(b, err)

	token, _, err := service.GenerateTokens(123)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := service.ValidateToken(context.Background(), token)
		require.NoError(b, err)
	}
}
