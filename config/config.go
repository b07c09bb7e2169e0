// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.aimuz.me/murmur/internal/types"
)

const (
	appName        = "murmur"
	configFileName = "config.json"

	// EnvAPIKey is consulted when the config file carries no key.
	EnvAPIKey = "OPENAI_API_KEY"
)

// ErrMissingAPIKey is returned by Validate when no credential is configured.
var ErrMissingAPIKey = errors.New("openai api key is not set")

// Config represents the application configuration.
// Values are read once at startup; changing them requires a restart.
type Config struct {
	Hotkey   string `json:"hotkey"`
	Language string `json:"language"` // ISO-639-1 code, or "auto"

	OpenAIAPIKey   string `json:"openai_api_key"`
	BaseURL        string `json:"base_url,omitempty"`
	RequestTimeout int    `json:"request_timeout"` // seconds

	// Pacing in milliseconds
	WordDelay     int `json:"word_delay"`
	KeyEventDelay int `json:"key_event_delay"`

	OutputMode    string `json:"output_mode"` // "type" or "paste"
	OrderedOutput bool   `json:"ordered_output"`
	Notifications bool   `json:"notifications"`

	LogLevel string `json:"log_level"`
}

// Load loads configuration from the default config file.
// A default config is written to disk if none exists yet.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path, creating it with defaults when missing.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg := defaultConfig()
		if err := cfg.SaveTo(path); err != nil {
			return nil, err
		}
		slog.Info("created default config", "path", path)
		cfg.applyEnv()
		return cfg, nil
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// SaveTo persists the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// The file holds a credential.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Hotkey) == "" {
		return fmt.Errorf("hotkey is required")
	}
	if c.OpenAIAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.WordDelay < 0 || c.KeyEventDelay < 0 {
		return fmt.Errorf("delays must not be negative: word_delay=%d key_event_delay=%d",
			c.WordDelay, c.KeyEventDelay)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative: %d", c.RequestTimeout)
	}
	switch c.OutputMode {
	case types.OutputModeType, types.OutputModePaste:
	default:
		return fmt.Errorf("unknown output_mode %q", c.OutputMode)
	}
	return nil
}

// Pacing returns the keystroke pacing described by the config.
func (c *Config) Pacing() types.Pacing {
	return types.PacingFromMillis(c.WordDelay, c.KeyEventDelay)
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// LoadDotEnv loads a .env file from the working directory if present.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "error", err)
	}
}

// applyEnv fills the credential from the environment when the file has none.
func (c *Config) applyEnv() {
	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = os.Getenv(EnvAPIKey)
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, configFileName), nil
}

func defaultConfig() *Config {
	return &Config{
		Hotkey:         "F7",
		Language:       "en",
		RequestTimeout: 60,
		WordDelay:      0,
		KeyEventDelay:  10,
		OutputMode:     types.OutputModeType,
		LogLevel:       "info",
	}
}
