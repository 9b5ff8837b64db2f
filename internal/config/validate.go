package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable by both the daemon and the CLI.
// Provider credentials are checked separately by ValidateProvider because only
// promptreeld talks to the provider.
func (c *Config) Validate() error {
	if err := c.validateProxy(); err != nil {
		return err
	}
	if err := c.validateProviderShape(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateProvider ensures the upstream provider can be reached.
func (c *Config) ValidateProvider() error {
	switch c.Provider.Backend {
	case "http":
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("provider.base_url is required for the http backend (edit %s)", displayConfigPath())
		}
		if err := validateHTTPURL(c.Provider.BaseURL); err != nil {
			return fmt.Errorf("provider.base_url: %w", err)
		}
	case "veo":
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider.api_key is required for the veo backend. Set GEMINI_API_KEY env var or edit %s", displayConfigPath())
		}
	}
	return nil
}

func (c *Config) validateProxy() error {
	if strings.TrimSpace(c.Proxy.Bind) == "" {
		return errors.New("proxy.bind must be set")
	}
	return nil
}

func (c *Config) validateProviderShape() error {
	switch c.Provider.Backend {
	case "http", "veo":
	default:
		return fmt.Errorf("provider.backend must be http or veo (got %q)", c.Provider.Backend)
	}
	if c.Provider.TimeoutSeconds <= 0 {
		return errors.New("provider.timeout_seconds must be positive")
	}
	if c.Provider.EstimatedTimeSeconds <= 0 {
		return errors.New("provider.estimated_time_seconds must be positive")
	}
	return nil
}

func (c *Config) validateClient() error {
	if err := validateHTTPURL(c.Client.ProxyURL); err != nil {
		return fmt.Errorf("client.proxy_url: %w", err)
	}
	if c.Client.TimeoutSeconds <= 0 {
		return errors.New("client.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTracker() error {
	if c.Tracker.TickIntervalMS <= 0 {
		return errors.New("tracker.tick_interval_ms must be positive")
	}
	if c.Tracker.MaxIncrement <= 0 {
		return errors.New("tracker.max_increment must be positive")
	}
	if c.Tracker.CompletionDelaySeconds <= 0 {
		return errors.New("tracker.completion_delay_seconds must be positive")
	}
	return nil
}

func (c *Config) validateHistory() error {
	switch c.History.Backend {
	case "file", "sqlite":
		if c.History.Path == "" {
			return fmt.Errorf("history.path must be set for the %s backend", c.History.Backend)
		}
	case "redis":
		if c.History.RedisAddr == "" {
			return errors.New("history.redis_addr must be set for the redis backend")
		}
		if c.History.RedisDB < 0 {
			return errors.New("history.redis_db must be zero or positive")
		}
	default:
		return fmt.Errorf("history.backend must be file, sqlite, or redis (got %q)", c.History.Backend)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" {
		if err := validateHTTPURL(c.Notifications.NtfyTopic); err != nil {
			return fmt.Errorf("notifications.ntfy_topic: %w", err)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		return errors.New("notifications.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
}

func validateHTTPURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("must be set")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https (got %q)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("host must be set")
	}
	return nil
}

func displayConfigPath() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return defaultConfigPath
	}
	return path
}
