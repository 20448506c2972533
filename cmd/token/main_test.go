package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/ev-notify/internal/shared/infrastructure/config"
	"github.com/saransh1220/ev-notify/internal/shared/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}

func TestRun_IssuesValidToken(t *testing.T) {
	userID := uuid.New()
	var out bytes.Buffer

	err := run([]string{"-user", userID.String(), "-role", "admin", "-email", "ops@example.com"}, testJWT, &out)
	require.NoError(t, err)

	claims, err := utils.ValidateToken(strings.TrimSpace(out.String()), testJWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestRun_DefaultsToRandomUser(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(nil, testJWT, &out))

	claims, err := utils.ValidateToken(strings.TrimSpace(out.String()), testJWT.Secret)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestRun_CustomTTL(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-ttl", "5m"}, testJWT, &out))

	claims, err := utils.ValidateToken(strings.TrimSpace(out.String()), testJWT.Secret)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestRun_InvalidArgs(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run([]string{"-user", "nope"}, testJWT, &out))
	assert.Error(t, run([]string{"-ttl", "-1m"}, testJWT, &out))
	assert.Error(t, run([]string{"-unknown"}, testJWT, &out))
	assert.Empty(t, out.String())
}
