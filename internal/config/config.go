// Package config holds the application configuration read by the lina
// commands from defaults, an optional YAML file and LINA_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Profiles ProfilesConfig `mapstructure:"profiles"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	Primary  TargetConfig   `mapstructure:"primary"`
	Uploader UploaderConfig `mapstructure:"uploader"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Archive  StoreConfig    `mapstructure:"archive"`
	Record   StoreConfig    `mapstructure:"record"`
	Server   ServerConfig   `mapstructure:"server"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProfilesConfig locates the profile directory and controls reloading.
type ProfilesConfig struct {
	Dir      string        `mapstructure:"dir"`
	Reload   bool          `mapstructure:"reload"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// SnapshotConfig controls how snapshot files are read.
type SnapshotConfig struct {
	// RootSelector is a JSONPath picking the tree root inside a snapshot.
	RootSelector string `mapstructure:"root_selector"`
}

// QueueConfig holds the on-disk upload queue location.
type QueueConfig struct {
	Dir string `mapstructure:"dir"`
}

// DedupConfig holds the duplicate filter configuration.
type DedupConfig struct {
	Size int `mapstructure:"size"`
}

// TargetConfig is an HTTP endpoint payloads are POSTed to.
type TargetConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// UploaderConfig holds the wait times of the upload loop.
type UploaderConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	ErrorBackoff  time.Duration `mapstructure:"error_backoff"`
}

// WebhookConfig holds the optional secondary webhook.
type WebhookConfig struct {
	TargetConfig `mapstructure:",squash"`
	MaxInflight  int64 `mapstructure:"max_inflight"`
}

// NATSConfig holds the optional NATS forwarder configuration.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Subject       string        `mapstructure:"subject"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// StoreConfig points at an optional SQLite file.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds HTTP ingest server configuration.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	APIKey       string        `mapstructure:"api_key"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SetDefaults registers the default value of every setting.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("profiles.dir", "./profiles")
	v.SetDefault("profiles.reload", false)
	v.SetDefault("profiles.debounce", "500ms")

	v.SetDefault("snapshot.root_selector", "")

	v.SetDefault("queue.dir", "./queue")
	v.SetDefault("dedup.size", 1000)

	v.SetDefault("primary.url", "")
	v.SetDefault("primary.token", "")
	v.SetDefault("primary.timeout", "30s")

	v.SetDefault("uploader.poll_interval", "10s")
	v.SetDefault("uploader.retry_interval", "30s")
	v.SetDefault("uploader.error_backoff", "60s")

	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.token", "")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.max_inflight", 4)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "lina.payloads")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")

	v.SetDefault("archive.path", "")
	v.SetDefault("record.path", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q must be json or text", c.Log.Format)
	}

	if c.Profiles.Debounce < 0 {
		return errors.New("profiles.debounce must not be negative")
	}
	if c.Dedup.Size < 1 {
		return errors.New("dedup.size must be at least 1")
	}
	if c.Uploader.PollInterval <= 0 || c.Uploader.RetryInterval <= 0 || c.Uploader.ErrorBackoff <= 0 {
		return errors.New("uploader intervals must be positive")
	}
	if c.Webhook.URL != "" && c.Webhook.MaxInflight < 1 {
		return errors.New("webhook.max_inflight must be at least 1")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return errors.New("nats.subject is required when nats.url is set")
	}
	return nil
}

// RequireUpload checks the settings the upload loop cannot run without.
func (c *Config) RequireUpload() error {
	if c.Primary.URL == "" {
		return errors.New("primary.url is required")
	}
	if c.Queue.Dir == "" {
		return errors.New("queue.dir is required")
	}
	return nil
}
