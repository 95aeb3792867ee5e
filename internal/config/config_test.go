package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFileKeepsDefaults(t *testing.T) {
	cfg := Default()
	cfg.DataDir = t.TempDir()

	require.NoError(t, cfg.LoadSettings())
	assert.Equal(t, DefaultSettings(), cfg.Settings)
}

func TestSaveAndLoadSettings(t *testing.T) {
	cfg := Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "nested")
	cfg.Settings.Chat.ModelName = "llama3:8b"
	cfg.Settings.Chat.Temperature = 0.2
	cfg.Settings.UI.ShowTimestamps = false

	require.NoError(t, cfg.SaveSettings())

	reloaded := Default()
	reloaded.DataDir = cfg.DataDir
	require.NoError(t, reloaded.LoadSettings())
	assert.Equal(t, cfg.Settings, reloaded.Settings)
}

func TestLoadSettingsRejectsCorruptFile(t *testing.T) {
	cfg := Default()
	cfg.DataDir = t.TempDir()
	require.NoError(t, os.WriteFile(cfg.SettingsPath(), []byte("{not json"), 0o644))

	assert.Error(t, cfg.LoadSettings())
}

func TestServerURLEnvOverride(t *testing.T) {
	t.Setenv("CHATDECK_SERVER", "http://example.test:9000")
	cfg := Default()
	assert.Equal(t, "http://example.test:9000", cfg.ServerURL)
}
