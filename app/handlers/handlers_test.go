package handlers

import (
	"testing"

	"github.com/plastiqc/accounts/config"
	"github.com/stretchr/testify/assert"
)

type passwordPayload struct {
	Password string `validate:"password_strength"`
}

func TestPasswordStrengthFollowsSecurityConfig(t *testing.T) {
	strict := newValidator(&config.SecurityConfig{
		PasswordMinLength:    8,
		PasswordRequireUpper: true,
		PasswordRequireNum:   true,
	})

	assert.NoError(t, strict.Struct(&passwordPayload{Password: "Sturdy99pass"}))
	assert.Error(t, strict.Struct(&passwordPayload{Password: "sturdy99pass"}), "uppercase required")
	assert.Error(t, strict.Struct(&passwordPayload{Password: "SturdyPassword"}), "number required")
	assert.Error(t, strict.Struct(&passwordPayload{Password: "Sh0rt"}), "minimum length enforced")

	relaxed := newValidator(&config.SecurityConfig{
		PasswordMinLength: 6,
	})
	assert.NoError(t, relaxed.Struct(&passwordPayload{Password: "sturdy pass"}))
	assert.Error(t, relaxed.Struct(&passwordPayload{Password: "tiny"}))
}
