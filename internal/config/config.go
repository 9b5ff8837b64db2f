package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration shared by the daemon and CLI.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Proxy contains configuration for the promptreeld HTTP proxy.
type Proxy struct {
	Bind           string   `toml:"bind"`
	APIToken       string   `toml:"api_token"`
	AllowedOrigins []string `toml:"allowed_origins"`
	MetricsEnabled bool     `toml:"metrics_enabled"`
}

// Provider contains configuration for the upstream video generation API.
type Provider struct {
	Backend              string   `toml:"backend"`
	BaseURL              string   `toml:"base_url"`
	APIKey               string   `toml:"api_key"`
	Model                string   `toml:"model"`
	Models               []string `toml:"models"`
	TimeoutSeconds       int      `toml:"timeout_seconds"`
	EstimatedTimeSeconds int      `toml:"estimated_time_seconds"`
}

// Client contains configuration for the CLI's connection to the proxy.
type Client struct {
	ProxyURL       string `toml:"proxy_url"`
	APIToken       string `toml:"api_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Tracker contains configuration for simulated progress and completion.
type Tracker struct {
	TickIntervalMS         int     `toml:"tick_interval_ms"`
	MaxIncrement           float64 `toml:"max_increment"`
	CompletionDelaySeconds int     `toml:"completion_delay_seconds"`
	PlaceholderVideoURL    string  `toml:"placeholder_video_url"`
}

// History contains configuration for the persisted generation history.
type History struct {
	Backend       string `toml:"backend"`
	Path          string `toml:"path"`
	Key           string `toml:"key"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for promptreel.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Proxy: promptreeld bind address, auth token, CORS, metrics
//   - Provider: upstream video generation backend and credentials
//   - Client: how the CLI reaches the proxy
//   - Tracker: simulated progress cadence and completion delay
//   - History: key-value backend holding the generation history list
//   - Notifications: optional ntfy topic for session summaries
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Proxy    Proxy    `toml:"proxy"`
	Provider Provider `toml:"provider"`
	Client   Client   `toml:"client"`
	Tracker  Tracker  `toml:"tracker"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// Load locates, parses, and validates a configuration file. The returned
// config has all paths expanded. .env files are exported into the process
// environment first so env fallbacks can see them.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if err := loadDotEnv(resolved); err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// loadDotEnv exports variables from ./.env and from a .env file next to the
// config file. Variables already present in the environment are not
// overridden.
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load env file %s: %w", abs, err)
		}
	}
	return nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file used by promptreeld.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "promptreeld.lock")
}

// Encode renders the configuration as TOML. Secrets are redacted unless
// showSecrets is set.
func (c *Config) Encode(showSecrets bool) ([]byte, error) {
	clone := *c
	if !showSecrets {
		clone = c.Redacted()
	}
	data, err := toml.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// Redacted returns a copy with tokens, keys and passwords masked.
func (c *Config) Redacted() Config {
	clone := *c
	clone.Proxy.APIToken = redact(clone.Proxy.APIToken)
	clone.Provider.APIKey = redact(clone.Provider.APIKey)
	clone.Client.APIToken = redact(clone.Client.APIToken)
	clone.History.RedisPassword = redact(clone.History.RedisPassword)
	return clone
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return "********"
}
