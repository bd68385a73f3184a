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

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Widget.SessionTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Widget.TeaserCooldown)
	assert.Equal(t, "COSE AI", cfg.Widget.BotDisplayName)
	assert.Equal(t, "America/Los_Angeles", cfg.Widget.DisplayTimezone)
	assert.Equal(t, 10, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "cosentus-chatbot", cfg.Webhooks.Source)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TIMEOUT_MINUTES", "5")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "3")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "10")
	t.Setenv("CHAT_WEBHOOK_URL", "https://example.com/hook")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Widget.SessionTimeout)
	assert.Equal(t, 3, cfg.RateLimit.Limit)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "https://example.com/hook", cfg.Webhooks.ChatURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT_MINUTES", "zero")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsZeroTimeout(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT_MINUTES", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestPortWithColonUsedVerbatim(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:8081")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8081", cfg.Server.Addr)
}
