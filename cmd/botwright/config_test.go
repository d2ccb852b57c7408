package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolateHome(t)
	cfg := loadConfig()

	assert.Equal(t, "file:"+filepath.Join(home, ".botwright", "botwright.db"), cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.SlackWebhookURL)
}

func TestLoadConfig_SettingsFileLayer(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".botwright")
	require.NoError(t, os.MkdirAll(dir, 0o700))

	settings := Config{LogLevel: "debug", SlackChannel: "#bots"}
	data, err := json.Marshal(settings)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), data, 0o644))

	cfg := loadConfig()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "#bots", cfg.SlackChannel)
}

func TestLoadConfig_EnvOverridesSettings(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".botwright")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"),
		[]byte(`{"log_level":"debug","sftp_port":2022}`), 0o644))

	t.Setenv("BOTWRIGHT_LOG_LEVEL", "error")
	t.Setenv("BOTWRIGHT_SFTP_PORT", "2222")
	t.Setenv("BOTWRIGHT_SLACK_WEBHOOK_URL", "https://hooks.example.com/T123")

	cfg := loadConfig()
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 2222, cfg.SFTPPort)
	assert.Equal(t, "https://hooks.example.com/T123", cfg.SlackWebhookURL)
}

func TestBuildIntegrations_PartialConfigAbsent(t *testing.T) {
	isolateHome(t)
	logger := slog.Default()

	in := buildIntegrations(Config{}, logger)
	assert.True(t, in.Empty())

	// Storage without credentials stays off.
	in = buildIntegrations(Config{StorageEndpoint: "s3.example.com", StorageBucket: "b"}, logger)
	assert.Nil(t, in.Storage)

	in = buildIntegrations(Config{SlackWebhookURL: "https://hooks.example.com/T123"}, logger)
	assert.NotNil(t, in.Slack)
	assert.False(t, in.Empty())
}
