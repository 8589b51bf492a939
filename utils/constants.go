package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour

	// CaptchaExpiry is the time-to-live for captcha challenges (2 minutes)
	CaptchaExpiry = 2 * time.Minute
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Activity view constants
const (
	// UserActivityLimit is the number of audit entries shown per user
	UserActivityLimit = 50

	// SystemActivityLimit is the number of audit entries shown system-wide
	SystemActivityLimit = 100

	// RecentRegistrationWindow bounds the dashboard's recent-registration list
	RecentRegistrationWindow = 7 * 24 * time.Hour
)
