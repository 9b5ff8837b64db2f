package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProxy()
	c.normalizeProvider()
	c.normalizeClient()
	c.normalizeTracker()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProxy() {
	c.Proxy.Bind = strings.TrimSpace(c.Proxy.Bind)
	if c.Proxy.Bind == "" {
		c.Proxy.Bind = defaultProxyBind
	}
	c.Proxy.APIToken = strings.TrimSpace(c.Proxy.APIToken)
	if c.Proxy.APIToken == "" {
		if value, ok := os.LookupEnv("PROMPTREEL_API_TOKEN"); ok {
			c.Proxy.APIToken = strings.TrimSpace(value)
		}
	}
	c.Proxy.AllowedOrigins = trimList(c.Proxy.AllowedOrigins)
}

func (c *Config) normalizeProvider() {
	c.Provider.Backend = strings.ToLower(strings.TrimSpace(c.Provider.Backend))
	if c.Provider.Backend == "" {
		c.Provider.Backend = defaultProviderBackend
	}
	c.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(c.Provider.BaseURL), "/")
	c.Provider.APIKey = strings.TrimSpace(c.Provider.APIKey)
	if c.Provider.APIKey == "" {
		envKeys := []string{"PROMPTREEL_PROVIDER_API_KEY", "VIDEO_API_KEY"}
		if c.Provider.Backend == "veo" {
			envKeys = append(envKeys, "GEMINI_API_KEY", "GOOGLE_API_KEY")
		}
		for _, key := range envKeys {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.Provider.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.Provider.Model = strings.TrimSpace(c.Provider.Model)
	if c.Provider.Model == "" {
		c.Provider.Model = defaultProviderModel
	}
	c.Provider.Models = trimList(c.Provider.Models)
	if len(c.Provider.Models) == 0 {
		c.Provider.Models = []string{c.Provider.Model}
	}
	if c.Provider.TimeoutSeconds == 0 {
		c.Provider.TimeoutSeconds = defaultProviderTimeoutSeconds
	}
	if c.Provider.EstimatedTimeSeconds == 0 {
		c.Provider.EstimatedTimeSeconds = defaultProviderEstimatedTime
	}
}

func (c *Config) normalizeClient() {
	c.Client.ProxyURL = strings.TrimRight(strings.TrimSpace(c.Client.ProxyURL), "/")
	if c.Client.ProxyURL == "" {
		if value, ok := os.LookupEnv("PROMPTREEL_PROXY_URL"); ok && strings.TrimSpace(value) != "" {
			c.Client.ProxyURL = strings.TrimRight(strings.TrimSpace(value), "/")
		} else {
			c.Client.ProxyURL = defaultClientProxyURL
		}
	}
	c.Client.APIToken = strings.TrimSpace(c.Client.APIToken)
	if c.Client.APIToken == "" {
		c.Client.APIToken = c.Proxy.APIToken
	}
	if c.Client.TimeoutSeconds == 0 {
		c.Client.TimeoutSeconds = defaultClientTimeoutSeconds
	}
}

func (c *Config) normalizeTracker() {
	if c.Tracker.TickIntervalMS == 0 {
		c.Tracker.TickIntervalMS = defaultTrackerTickIntervalMS
	}
	if c.Tracker.MaxIncrement == 0 {
		c.Tracker.MaxIncrement = defaultTrackerMaxIncrement
	}
	if c.Tracker.CompletionDelaySeconds == 0 {
		c.Tracker.CompletionDelaySeconds = defaultTrackerCompletionDelay
	}
	c.Tracker.PlaceholderVideoURL = strings.TrimSpace(c.Tracker.PlaceholderVideoURL)
	if c.Tracker.PlaceholderVideoURL == "" {
		c.Tracker.PlaceholderVideoURL = defaultTrackerPlaceholderVideoURL
	}
}

func (c *Config) normalizeHistory() error {
	c.History.Backend = strings.ToLower(strings.TrimSpace(c.History.Backend))
	if c.History.Backend == "" {
		c.History.Backend = defaultHistoryBackend
	}
	c.History.Key = strings.TrimSpace(c.History.Key)
	if c.History.Key == "" {
		c.History.Key = defaultHistoryKey
	}
	c.History.Path = strings.TrimSpace(c.History.Path)
	if c.History.Path == "" {
		switch c.History.Backend {
		case "sqlite":
			c.History.Path = filepath.Join(c.Paths.DataDir, defaultHistorySQLiteFileName)
		default:
			c.History.Path = filepath.Join(c.Paths.DataDir, defaultHistoryFileName)
		}
	}
	var err error
	if c.History.Path, err = ExpandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	c.History.RedisAddr = strings.TrimSpace(c.History.RedisAddr)
	if c.History.RedisAddr == "" {
		if value, ok := os.LookupEnv("REDIS_ADDR"); ok && strings.TrimSpace(value) != "" {
			c.History.RedisAddr = strings.TrimSpace(value)
		} else {
			c.History.RedisAddr = defaultHistoryRedisAddr
		}
	}
	if c.History.RedisPassword == "" {
		if value, ok := os.LookupEnv("REDIS_PASSWORD"); ok {
			c.History.RedisPassword = value
		}
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PROMPTREEL_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds == 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
