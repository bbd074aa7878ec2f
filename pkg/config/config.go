package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config defines the application configuration stored in config.json.
// It holds business-level settings: which LLM answers as the intent oracle,
// which front-end channels are served and which applications can be opened.
type Config struct {
	// Channels maps a channel identifier ("web", "telegram") to its raw
	// configuration. Only used by the serve command.
	Channels map[string]jsoniter.RawMessage `json:"channels,omitempty"`
	// LLM holds the provider groups of the intent oracle in raw JSON,
	// decoded by the llm package.
	LLM jsoniter.RawMessage `json:"llm"`
	// Apps overrides the platform's default application table.
	// Keys are matched case-insensitively.
	Apps map[string]string `json:"apps,omitempty"`
	// ScreenshotDir is where captures are written. Empty means ~/Desktop.
	ScreenshotDir string `json:"screenshot_dir,omitempty"`
}

// Validate ensures the configuration structure contains all mandatory fields.
func (c *Config) Validate() error {
	if len(c.LLM) == 0 {
		return fmt.Errorf("mandatory 'llm' configuration is missing or empty")
	}
	for name, path := range c.Apps {
		if name == "" || path == "" {
			return fmt.Errorf("invalid app entry %q: name and path must be non-empty", name)
		}
	}
	return nil
}

// DefaultConfig is used when no config.json exists: a local Ollama phi3
// model with a low temperature, which keeps the oracle's replies terse.
func DefaultConfig() *Config {
	return &Config{
		LLM: jsoniter.RawMessage(`[{"type":"ollama","models":["phi3"],"options":{"temperature":0.3,"num_thread":4}}]`),
	}
}

// SystemConfig defines engine-level technical parameters stored in system.json.
type SystemConfig struct {
	// MaxRetries is the number of attempts per provider on transient errors.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the base delay between retries, multiplied by the attempt number.
	RetryDelayMs int `json:"retry_delay_ms"`
	// OracleTimeoutMs bounds one classification. When exceeded the utterance
	// is treated as unrecognized.
	OracleTimeoutMs int `json:"oracle_timeout_ms"`
	// OllamaDefaultURL is used when an ollama group has no base_url.
	OllamaDefaultURL string `json:"ollama_default_url"`
	// LogLevel: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
	// LogFile receives the logs of the interactive modes so the terminal stays clean.
	LogFile string `json:"log_file"`
	// DebugChunks saves every raw LLM chunk under debug/chunks.
	DebugChunks bool `json:"debug_chunks"`
	// TelegramMessageLimit is the maximum character count for one Telegram message.
	TelegramMessageLimit int `json:"telegram_message_limit"`
}

// DefaultSystemConfig returns the values used for any field system.json leaves out.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxRetries:           3,
		RetryDelayMs:         500,
		OracleTimeoutMs:      20000,
		OllamaDefaultURL:     "http://localhost:11434",
		LogLevel:             "info",
		LogFile:              "deskpilot.log",
		TelegramMessageLimit: 4000,
	}
}

// Load reads config.json from appPath and system.json from sysPath.
// A missing config.json is not an error: DefaultConfig is used instead.
// A config.json that exists but cannot be parsed or validated is an error.
// A .env file next to config.json is loaded first so provider API keys can
// live outside the JSON.
func Load(appPath, sysPath string) (*Config, *SystemConfig, error) {
	if err := LoadEnv(filepath.Join(filepath.Dir(appPath), ".env")); err != nil {
		return nil, nil, err
	}

	cfg, err := LoadAppConfig(appPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, LoadSystemConfig(sysPath), nil
}

// LoadEnv loads KEY=value pairs from path into the process environment.
// Variables that are already set win. A missing file is ignored.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file '%s': %w", path, err)
	}
	slog.Debug("Environment file loaded", "path", path)
	return nil
}

// LoadAppConfig reads and validates the application config.
func LoadAppConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails.
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultSystemConfig()
	}
	if cfg.OracleTimeoutMs <= 0 {
		cfg.OracleTimeoutMs = DefaultSystemConfig().OracleTimeoutMs
	}
	return cfg
}
