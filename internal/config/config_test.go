package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Database.URL = "postgres://localhost/db"
	cfg.Pipeline.HistoryLimit = 20
	cfg.Completion.Provider = "openrouter"
	cfg.Completion.Timeout = 30 * time.Second
	return cfg
}

func TestWebhookConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		webhook WebhookConfig
		wantErr string
	}{
		{name: "disabled needs nothing", webhook: WebhookConfig{}},
		{
			name:    "enabled and complete",
			webhook: WebhookConfig{Enabled: true, VerifyToken: "v", BearerToken: "b", APIURL: "https://graph", SenderID: "s"},
		},
		{
			name:    "enabled missing verify token",
			webhook: WebhookConfig{Enabled: true, BearerToken: "b", APIURL: "https://graph", SenderID: "s"},
			wantErr: "verify token",
		},
		{
			name:    "enabled missing everything",
			webhook: WebhookConfig{Enabled: true},
			wantErr: "verify token, bearer token, api url, sender id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.webhook.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Completion.Provider = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Pipeline.HistoryLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Webhook.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Telegram.Token = "123:abc"
	assert.Error(t, cfg.Validate())
	cfg.Telegram.UserID = 1
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaultsAndEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://example/db")
	t.Setenv("HISTORY_LIMIT", "12")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("WEBHOOK_ENABLED", "true")
	t.Setenv("WEBHOOK_VERIFY_TOKEN", "verify-me")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://example/db", cfg.Database.URL)
	assert.Equal(t, 12, cfg.Pipeline.HistoryLimit)
	assert.Equal(t, 5*time.Second, cfg.Completion.Timeout)
	assert.True(t, cfg.Webhook.Enabled)
	assert.Equal(t, "verify-me", cfg.Webhook.VerifyToken)
	assert.Equal(t, "it", cfg.Pipeline.Language)
	assert.Equal(t, "openrouter", cfg.Completion.Provider)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "promptbot.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "9090"

[pipeline]
language = "en"
default_prompt_id = "support"
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PROMPT_LANGUAGE", "de")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "support", cfg.Pipeline.DefaultPromptID)
	assert.Equal(t, "de", cfg.Pipeline.Language, "environment overrides the file")
}
