package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"promptreel/internal/config"
	"promptreel/internal/genclient"
	"promptreel/internal/history"
	"promptreel/internal/kvstore"
	"promptreel/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	mu      sync.Mutex
	kv      kvstore.Store
	history *history.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// log returns a file-only logger so log lines never interleave with progress
// output. Failures fall back to a no-op logger.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		c.logger = logging.NewNop()
		cfg, err := c.ensureConfig()
		if err != nil {
			return
		}
		logger, err := logging.NewFileOnly(cfg, "promptreel")
		if err != nil {
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) client() (*genclient.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return genclient.New(cfg.Client.ProxyURL,
		genclient.WithToken(cfg.Client.APIToken),
		genclient.WithTimeout(time.Duration(cfg.Client.TimeoutSeconds)*time.Second),
		genclient.WithLogger(c.log()),
	), nil
}

func (c *commandContext) historyStore(ctx context.Context) (*history.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.history != nil {
		return c.history, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	kv, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	c.kv = kv
	c.history = history.New(kv, cfg.History.Key, c.log())
	return c.history, nil
}

func (c *commandContext) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv != nil {
		_ = c.kv.Close()
		c.kv = nil
		c.history = nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
