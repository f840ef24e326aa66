// Package config loads planforge settings from YAML with environment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds planforge configuration.
type Config struct {
	// Backend is the base URL of the collaboration backend used by clients.
	Backend string `yaml:"backend"`
	// Listen is the address the backend daemon binds to.
	Listen string `yaml:"listen"`
	// DBPath is the SQLite database used by the daemon.
	DBPath string `yaml:"db_path"`
	// ClientTimeout bounds every backend request.
	ClientTimeout time.Duration `yaml:"client_timeout"`

	Gemini GeminiConfig `yaml:"gemini"`
	Log    LogConfig    `yaml:"log"`
	Auth   AuthConfig   `yaml:"auth"`

	// SentryDSN enables error reporting when set.
	SentryDSN string `yaml:"sentry_dsn,omitempty"`
}

// GeminiConfig configures the plan generator.
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key,omitempty"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
	File   string `yaml:"file,omitempty"`
}

// AuthConfig configures the sign-in flow.
type AuthConfig struct {
	URL string `yaml:"url"`
	Dir string `yaml:"dir,omitempty"`
}

// Environment variables that override file settings.
const (
	EnvGeminiKey = "GEMINI_API_KEY"
	EnvBackend   = "PLANFORGE_BACKEND"
	EnvDB        = "PLANFORGE_DB"
	EnvLogLevel  = "LOG_LEVEL"
	EnvSentryDSN = "SENTRY_DSN"
)

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Backend:       "http://127.0.0.1:7477",
		Listen:        "127.0.0.1:7477",
		DBPath:        filepath.Join(home, ".planforge", "planforge.db"),
		ClientTimeout: 10 * time.Second,
		Gemini: GeminiConfig{
			Model:   "gemini-2.0-flash",
			BaseURL: "https://generativelanguage.googleapis.com",
			Timeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Auth: AuthConfig{
			URL: "https://planforge.app/auth/cli/",
		},
	}
}

// DefaultPath returns ~/.planforge/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".planforge", "config.yaml")
}

// Load reads the config file at path. A missing file yields the defaults.
// Environment overrides are applied after the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvGeminiKey); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvSentryDSN); v != "" {
		c.SentryDSN = v
	}
}

// Save writes configuration to a YAML file, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend must be an absolute URL, got %q", c.Backend)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("client_timeout must be positive")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("gemini.model cannot be empty")
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q, must be: json or text", c.Log.Format)
	}
	return nil
}

// IsLocalBackend reports whether the backend URL points at this machine.
func (c *Config) IsLocalBackend() bool {
	u, err := url.Parse(c.Backend)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "127.0.0.1", "localhost", "::1":
		return true
	}
	return false
}
