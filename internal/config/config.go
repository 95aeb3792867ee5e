// Package config carries the client's runtime configuration: where the
// server lives, where local state goes, and the user-tunable chat and UI
// settings persisted between runs.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chatdeck/internal/api"
	"chatdeck/internal/utils"
)

const settingsFile = "settings.json"

// Config is everything the client needs to start.
type Config struct {
	ServerURL string
	DataDir   string
	Timeout   time.Duration
	Settings  Settings
}

// Settings are the persisted user preferences.
type Settings struct {
	Chat api.ChatSettings `json:"chat"`
	UI   UISettings       `json:"ui"`
}

// UISettings tune the rendering sink.
type UISettings struct {
	ShowTimestamps   bool `json:"showTimestamps"`
	MaxMessageLength int  `json:"maxMessageLength"`
}

// Default returns the baseline configuration. CHATDECK_SERVER and
// CHATDECK_DATA_DIR override the built-in server address and data
// directory; flags override both.
func Default() Config {
	cfg := Config{}
	cfg.ServerURL = envOr("CHATDECK_SERVER", "http://127.0.0.1:8000")
	cfg.DataDir = envOr("CHATDECK_DATA_DIR", defaultDataDir())
	// No request timeout: a hung request holds its UI control until it
	// resolves. Set --timeout to bound it.
	cfg.Timeout = 0
	cfg.Settings = DefaultSettings()
	return cfg
}

// DefaultSettings returns the chat and UI preferences used before any
// settings file exists.
func DefaultSettings() Settings {
	return Settings{
		Chat: api.ChatSettings{
			AIProvider:         "local",
			ModelName:          "qwen2.5:7b",
			Temperature:        0.7,
			ContextCompression: true,
			ContextWindowSize:  10,
		},
		UI: UISettings{
			ShowTimestamps:   true,
			MaxMessageLength: 4000,
		},
	}
}

// SettingsPath returns the location of the persisted settings file.
func (c Config) SettingsPath() string {
	return filepath.Join(c.DataDir, settingsFile)
}

// LoadSettings reads persisted settings into the config. A missing file
// leaves the defaults in place.
func (c *Config) LoadSettings() error {
	data, err := os.ReadFile(c.SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return err
	}
	c.Settings = settings
	return nil
}

// SaveSettings persists the current settings.
func (c Config) SaveSettings() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.Settings, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(c.SettingsPath(), data, 0o644)
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".chatdeck"
	}
	return filepath.Join(base, "chatdeck")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
