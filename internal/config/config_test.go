package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("gemini_api_key", "")
	t.Setenv("PROVIDER_TIMEOUT", "")
	t.Setenv("SESSION_MAX_ENTRIES", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.False(t, cfg.LLM.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Agent.ProviderTimeout)
	assert.Equal(t, 10000, cfg.Session.MaxSessions)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PROVIDER_TIMEOUT", "45")
	t.Setenv("SESSION_MAX_ENTRIES", "50")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("TWITTER_BEARER_TOKEN", "bearer")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, 45*time.Second, cfg.Agent.ProviderTimeout)
	assert.Equal(t, 50, cfg.Session.MaxSessions)
	assert.True(t, cfg.Social.Enabled())
	assert.True(t, cfg.Log.Debug())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                "80 80",
		"LLM_PROVIDER":        "mystery",
		"PROVIDER_TIMEOUT":    "soon",
		"SESSION_MAX_ENTRIES": "0",
		"LLM_MAX_TOKENS":      "many",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestArkEnabledRequiresModelAndCredentials(t *testing.T) {
	cfg := LLMConfig{Provider: ProviderArk, ArkAPIKey: "key"}
	assert.False(t, cfg.Enabled())

	cfg.Model = "doubao"
	assert.True(t, cfg.Enabled())

	cfg = LLMConfig{Provider: ProviderArk, Model: "doubao", ArkAccessKey: "ak"}
	assert.False(t, cfg.Enabled())
	cfg.ArkSecretKey = "sk"
	assert.True(t, cfg.Enabled())
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("X_TIMEOUT", "1500ms")
	d, err := parseDurationEnv("X_TIMEOUT", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	t.Setenv("X_TIMEOUT", "-1s")
	_, err = parseDurationEnv("X_TIMEOUT", time.Second)
	assert.Error(t, err)
}
