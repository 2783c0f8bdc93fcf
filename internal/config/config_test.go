package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8083", cfg.Addr)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.LoginMaxFailures)
	assert.Equal(t, 10*time.Minute, cfg.LoginWindow)
	assert.Equal(t, 50, cfg.HistoryLimit)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("LOGIN_MAX_FAILURES", "3")
	t.Setenv("SESSION_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 3, cfg.LoginMaxFailures)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestLoadRejectsBadLimits(t *testing.T) {
	t.Setenv("LOGIN_MAX_FAILURES", "0")

	_, err := Load()
	require.Error(t, err)
}
