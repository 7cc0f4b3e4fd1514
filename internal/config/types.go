package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config is the on-disk configuration. All durations are Go duration
// strings (e.g. "500ms", "10s", "3m"); they are validated up front so a
// typo is caught at load time, not mid-cycle.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Source   SourceConfig   `json:"source"`
	Monitor  MonitorConfig  `json:"monitor"`
	Notifier NotifierConfig `json:"notifier"`
	Debug    DebugConfig    `json:"debug"`
}

// DebugConfig controls the optional pprof server. Binding beyond loopback
// without a token is rejected at startup.
type DebugConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and provided via the
	// TELEGRAM_BOT_TOKEN environment variable instead.
	Token       string `json:"token,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type SourceConfig struct {
	URL          string `json:"url,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	FetchTimeout string `json:"fetch_timeout,omitempty"`
}

type MonitorConfig struct {
	PollInterval string `json:"poll_interval,omitempty"`
}

type NotifierConfig struct {
	QueueSize    int    `json:"queue_size,omitempty"`
	MaxPerMinute int    `json:"max_per_minute,omitempty"`
	SendTimeout  string `json:"send_timeout,omitempty"`
	SendDelay    string `json:"send_delay,omitempty"`
}

// Validate checks field shapes without touching the environment; the token
// may still arrive from env after loading.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	for _, d := range []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"source.fetch_timeout", c.Source.FetchTimeout},
		{"monitor.poll_interval", c.Monitor.PollInterval},
		{"notifier.send_timeout", c.Notifier.SendTimeout},
		{"notifier.send_delay", c.Notifier.SendDelay},
	} {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}
	if c.Notifier.QueueSize < 0 {
		return errors.New("notifier.queue_size must be >= 0")
	}
	if c.Notifier.MaxPerMinute < 0 {
		return errors.New("notifier.max_per_minute must be >= 0")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if c.Logging.Telegram.Enabled && c.Logging.Telegram.ChatID == 0 {
		return fmt.Errorf("logging.telegram.chat_id is required when the telegram sink is enabled")
	}
	return nil
}
