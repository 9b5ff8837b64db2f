package config

const (
	defaultConfigPath                 = "~/.config/promptreel/config.toml"
	projectConfigName                 = "promptreel.toml"
	defaultDataDir                    = "~/.local/share/promptreel"
	defaultLogDir                     = "~/.local/share/promptreel/logs"
	defaultProxyBind                  = "127.0.0.1:7488"
	defaultAllowedOrigin              = "*"
	defaultMetricsEnabled             = true
	defaultProviderBackend            = "http"
	defaultProviderModel              = "veo-3.0-generate-preview"
	defaultProviderTimeoutSeconds     = 60
	defaultProviderEstimatedTime      = 120
	defaultClientProxyURL             = "http://127.0.0.1:7488"
	defaultClientTimeoutSeconds       = 90
	defaultTrackerTickIntervalMS      = 1000
	defaultTrackerMaxIncrement        = 10
	defaultTrackerCompletionDelay     = 10
	defaultTrackerPlaceholderVideoURL = "https://storage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4"
	defaultHistoryBackend             = "file"
	defaultHistoryKey                 = "promptreel.history"
	defaultHistoryFileName            = "history.json"
	defaultHistorySQLiteFileName      = "history.db"
	defaultHistoryRedisAddr           = "127.0.0.1:6379"
	defaultNtfyRequestTimeout         = 10
	defaultLogFormat                  = "console"
	defaultLogLevel                   = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Proxy: Proxy{
			Bind:           defaultProxyBind,
			AllowedOrigins: []string{defaultAllowedOrigin},
			MetricsEnabled: defaultMetricsEnabled,
		},
		Provider: Provider{
			Backend:              defaultProviderBackend,
			Model:                defaultProviderModel,
			TimeoutSeconds:       defaultProviderTimeoutSeconds,
			EstimatedTimeSeconds: defaultProviderEstimatedTime,
		},
		Client: Client{
			TimeoutSeconds: defaultClientTimeoutSeconds,
		},
		Tracker: Tracker{
			TickIntervalMS:         defaultTrackerTickIntervalMS,
			MaxIncrement:           defaultTrackerMaxIncrement,
			CompletionDelaySeconds: defaultTrackerCompletionDelay,
			PlaceholderVideoURL:    defaultTrackerPlaceholderVideoURL,
		},
		History: History{
			Backend: defaultHistoryBackend,
			Key:     defaultHistoryKey,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
