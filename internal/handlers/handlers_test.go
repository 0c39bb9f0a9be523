package handlers_test

import (
	"net/http"
	"testing"

	"github.com/loopflow/cadenza/internal/apptest"
	"github.com/loopflow/cadenza/internal/config"
	"github.com/loopflow/cadenza/internal/dto"
	"github.com/loopflow/cadenza/internal/models"
	"github.com/loopflow/cadenza/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootAndHealth(t *testing.T) {
	env := apptest.New(t)

	resp := env.Do(http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"message":"Cadenza API"}`, string(resp.Body))

	resp = env.Do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var health dto.HealthResponse
	resp.Decode(t, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.DB)
	assert.NotEmpty(t, health.Timestamp)
}

func TestDevLoginIssuesWorkingToken(t *testing.T) {
	env := apptest.New(t)

	resp := env.Do(http.MethodPost, "/auth/dev-login?email=teacher@example.com", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	var auth dto.AuthResponse
	resp.Decode(t, &auth)
	require.NotEmpty(t, auth.AccessToken)
	assert.Equal(t, "teacher@example.com", auth.User.Email)

	resp = env.DoWithToken(http.MethodGet, "/auth/me", auth.AccessToken)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	var me models.User
	resp.Decode(t, &me)
	assert.Equal(t, auth.User.ID, me.ID)

	// A second login resolves the same user.
	resp = env.Do(http.MethodPost, "/auth/dev-login?email=teacher@example.com", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var again dto.AuthResponse
	resp.Decode(t, &again)
	assert.Equal(t, auth.User.ID, again.User.ID)
}

func TestDevLoginValidation(t *testing.T) {
	env := apptest.New(t)

	resp := env.Do(http.MethodPost, "/auth/dev-login?email=nope", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)

	resp = env.Do(http.MethodPost, "/auth/dev-login", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
}

func TestDevLoginHiddenOutsideDev(t *testing.T) {
	env := apptest.New(t, func(cfg *config.Config) { cfg.Environment = "staging" })

	resp := env.Do(http.MethodPost, "/auth/dev-login?email=teacher@example.com", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestDevTokens(t *testing.T) {
	env := apptest.New(t)

	resp := env.Do(http.MethodPost, "/auth/dev-login?email=dev@example.com", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var auth dto.AuthResponse
	resp.Decode(t, &auth)

	resp = env.DoWithToken(http.MethodGet, "/auth/me", services.DevTokenPrefix+auth.User.ID.String())
	assert.Equal(t, http.StatusOK, resp.Status)

	// Users that signed in with Apple cannot be impersonated.
	apple := env.User("apple@example.com", nil)
	resp = env.DoWithToken(http.MethodGet, "/auth/me", services.DevTokenPrefix+apple.ID.String())
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestAuthFailuresAreUniform(t *testing.T) {
	env := apptest.New(t)

	for _, token := range []string{"", "garbage", "dev_token_user_not-a-uuid"} {
		resp := env.DoWithToken(http.MethodGet, "/auth/me", token)
		assert.Equal(t, http.StatusUnauthorized, resp.Status, token)
		body := resp.Error(t)
		assert.Equal(t, "unauthenticated", body.Kind)
		assert.Equal(t, "Authentication failed", body.Message)
	}

	ghost := env.User("ghost@example.com", nil)
	token := env.Token(ghost)
	require.NoError(t, env.DB.Delete(&models.User{}, "id = ?", ghost.ID).Error)
	resp := env.DoWithToken(http.MethodGet, "/pieces", token)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestAppleSignInRejectsBadInput(t *testing.T) {
	env := apptest.New(t)

	resp := env.Do(http.MethodPost, "/auth/apple", nil, map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(t, "id_token is required", resp.Error(t).Message)

	resp = env.Do(http.MethodPost, "/auth/apple", nil, map[string]string{"idToken": "not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Authentication failed", resp.Error(t).Message)
}

func TestAuthRateLimit(t *testing.T) {
	env := apptest.New(t, func(cfg *config.Config) {
		cfg.RateLimitEnabled = true
		cfg.RateLimitAuth = 2
	})

	for i := 0; i < 2; i++ {
		resp := env.Do(http.MethodPost, "/auth/dev-login?email=teacher@example.com", nil, nil)
		require.Equal(t, http.StatusOK, resp.Status)
	}
	resp := env.Do(http.MethodPost, "/auth/dev-login?email=teacher@example.com", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, "rate_limited", resp.Error(t).Kind)
}
