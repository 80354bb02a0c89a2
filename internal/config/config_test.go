package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ProviderModeWebhook, cfg.App.ProviderMode)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.ChannelTimeout)
	assert.Equal(t, "{{subject}}: {{body}}", cfg.SMS.Format)
	assert.Equal(t, map[string]string{"1": "{{subject}}", "2": "{{body}}"}, cfg.WhatsApp.TemplateVariables)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PROVIDER_MODE", "LIVE")
	t.Setenv("DISPATCH_CHANNEL_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_PER_CHANNEL", "7")
	t.Setenv("WHATSAPP_TEMPLATE_VARIABLES", "1={{name}};2={{code}}")

	cfg := Load()

	assert.Equal(t, ProviderModeLive, cfg.App.ProviderMode)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.ChannelTimeout)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 7, cfg.RateLimit.PerSec)
	assert.Equal(t, map[string]string{"1": "{{name}}", "2": "{{code}}"}, cfg.WhatsApp.TemplateVariables)
}

func TestEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_DURATION", "soon")
	t.Setenv("TEST_MAP", "novalue;=x")

	assert.Equal(t, 3, getIntEnv("TEST_INT", 3))
	assert.True(t, getBoolEnv("TEST_BOOL", true))
	assert.Equal(t, time.Second, getDurationEnv("TEST_DURATION", time.Second))
	assert.Equal(t, map[string]string{"a": "b"}, getMapEnv("TEST_MAP", map[string]string{"a": "b"}))
}
