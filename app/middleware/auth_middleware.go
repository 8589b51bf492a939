// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/plastiqc/accounts/app/dto"
	"github.com/plastiqc/accounts/app/services"
	"github.com/plastiqc/accounts/models"
	"github.com/plastiqc/accounts/repository"
	"github.com/plastiqc/accounts/utils"
)

// AuthMiddleware validates JWT tokens and resolves the calling account
// for protected endpoints. The token must correspond to a live session
// row; revoked tokens are rejected by the token service.
type AuthMiddleware struct {
	tokenService services.TokenService
	accountRepo  repository.AccountRepository
	sessionRepo  repository.AccountSessionRepository
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(
	tokenService services.TokenService,
	accountRepo repository.AccountRepository,
	sessionRepo repository.AccountSessionRepository,
) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		accountRepo:  accountRepo,
		sessionRepo:  sessionRepo,
	}
}

// Authenticate is the middleware function that validates JWT tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		claims, err := m.tokenService.ValidateToken(ctx, token)
		if err != nil {
			return tokenErrorResponse(c, err)
		}

		if claims.TokenType != "access" {
			return unauthorized(c, "Access token required", "WRONG_TOKEN_TYPE")
		}

		session, err := m.sessionRepo.BySessionToken(ctx, token)
		if err != nil {
			return unauthorized(c, "Session validation failed", "SESSION_VALIDATION_FAILED")
		}
		if session == nil || !session.IsValid() {
			return unauthorized(c, "Session is no longer valid", "SESSION_INVALID")
		}

		account, err := m.accountRepo.ByID(ctx, claims.AccountID)
		if err != nil || account == nil {
			return unauthorized(c, "Account not found", "ACCOUNT_NOT_FOUND")
		}

		if !utils.IsTrue(account.IsActive) {
			return unauthorized(c, "Account is deactivated", "ACCOUNT_INACTIVE")
		}
		if account.IsPendingApproval() {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Account is pending admin approval",
				Error:   dto.ErrorDetail{Code: "ACCOUNT_PENDING_APPROVAL"},
			})
		}

		// Store account information in context for downstream handlers
		c.Locals("account", account)
		c.Locals("account_id", account.ID)
		c.Locals("token_id", claims.TokenID)
		c.Locals("session_token", token)

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// RequireAdmin gates a route group to administrator accounts. It must
// run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		account, ok := GetAccountFromContext(c)
		if !ok {
			return unauthorized(c, "Authentication required", "AUTHENTICATION_REQUIRED")
		}

		if !account.IsAdministrator() {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Administrator privilege required",
				Error:   dto.ErrorDetail{Code: "ADMIN_REQUIRED"},
			})
		}

		return c.Next()
	}
}

func tokenErrorResponse(c fiber.Ctx, err error) error {
	var errorCode string
	var message string

	if errors.Is(err, services.ErrTokenExpired) {
		errorCode = "TOKEN_EXPIRED"
		message = "Access token has expired"
	} else if errors.Is(err, services.ErrTokenInvalid) {
		errorCode = "TOKEN_INVALID"
		message = "Invalid access token"
	} else if errors.Is(err, services.ErrTokenRevoked) {
		errorCode = "TOKEN_REVOKED"
		message = "Access token has been revoked"
	} else {
		errorCode = "TOKEN_VALIDATION_FAILED"
		message = "Token validation failed"
	}

	return unauthorized(c, message, errorCode)
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// GetAccountFromContext extracts the authenticated account from the request context
func GetAccountFromContext(c fiber.Ctx) (*models.Account, bool) {
	account, ok := c.Locals("account").(*models.Account)
	return account, ok
}

// GetSessionTokenFromContext extracts the raw session token from the request context
func GetSessionTokenFromContext(c fiber.Ctx) (string, bool) {
	token, ok := c.Locals("session_token").(string)
	return token, ok
}
