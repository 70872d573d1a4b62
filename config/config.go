// Package config loads resilient-client settings from a YAML file,
// RESILIENT_* environment variables and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RESILIENT_CACHE_TTL=10s.
const EnvPrefix = "RESILIENT"

// Config is the full client configuration.
//
// Sources, highest precedence first:
//  1. Environment variables (RESILIENT_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Offline      OfflineConfig      `mapstructure:"offline" yaml:"offline"`
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Remote       RemoteConfig       `mapstructure:"remote" yaml:"remote"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity" yaml:"connectivity"`
	Metrics      MetricsConfig      `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level: DEBUG, INFO, WARN, ERROR (normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR" yaml:"level"`

	// Format: text (colored console) or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output: stdout, stderr or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`

	// Quiet only logs warnings and errors regardless of Level
	Quiet bool `mapstructure:"quiet" yaml:"quiet"`
}

// CacheConfig configures the response cache group.
type CacheConfig struct {
	// TTL is the default freshness window.
	// Default: 30s
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0" yaml:"ttl"`

	// Shards splits each cache to reduce lock contention.
	// Default: 4
	Shards int `mapstructure:"shards" validate:"min=1" yaml:"shards"`

	// MaxEntries bounds each cache. 0 means unbounded.
	MaxEntries int `mapstructure:"max_entries" validate:"min=0" yaml:"max_entries"`

	// Eviction picks the victim when a bounded cache is full: lru or fifo.
	Eviction string `mapstructure:"eviction" validate:"oneof=lru fifo" yaml:"eviction"`

	// Expiration is "write" (fixed TTL from the fetch) or "access" (sliding).
	Expiration string `mapstructure:"expiration" validate:"oneof=write access" yaml:"expiration"`

	// RefreshAhead reloads an entry in the background once it has used this
	// fraction of its TTL. 0 disables refresh-ahead.
	RefreshAhead float64 `mapstructure:"refresh_ahead" validate:"gte=0,lt=1" yaml:"refresh_ahead"`
}

// OfflineConfig configures the offline queue and coordinator.
type OfflineConfig struct {
	// QueuePrefix namespaces queue keys in the store.
	// Default: "@resilient/offline:"
	QueuePrefix string `mapstructure:"queue_prefix" validate:"required" yaml:"queue_prefix"`

	// RetryInterval runs a background replay while online with a non-empty
	// queue. 0 disables it.
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"gte=0" yaml:"retry_interval"`

	// Notify logs a user-facing notification for queued and replayed writes.
	Notify bool `mapstructure:"notify" yaml:"notify"`
}

// StoreConfig selects the durable key-value store behind the queue.
type StoreConfig struct {
	// Kind: memory, badger or sqlite
	Kind string `mapstructure:"kind" validate:"required,oneof=memory badger sqlite" yaml:"kind"`

	// Path is the badger directory or sqlite file. Badger runs in memory
	// when it is empty; sqlite requires it.
	Path string `mapstructure:"path" validate:"required_if=Kind sqlite" yaml:"path"`
}

// RemoteConfig configures the HTTP backend.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url" yaml:"base_url"`

	// Timeout bounds every request. Default: 10s
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0" yaml:"timeout"`

	// Headers are sent with every request.
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
}

// ConnectivityConfig selects the connectivity signal.
type ConnectivityConfig struct {
	// Mode: manual (the app sets it), probe (HTTP health polling) or
	// websocket (a live stream; dropped means offline)
	Mode string `mapstructure:"mode" validate:"required,oneof=manual probe websocket" yaml:"mode"`

	// URL is the probe or websocket endpoint.
	URL string `mapstructure:"url" validate:"required_unless=Mode manual" yaml:"url,omitempty"`

	// Interval between probes or websocket pings. Default: 5s
	Interval time.Duration `mapstructure:"interval" validate:"gt=0" yaml:"interval"`

	// Timeout for a single probe. Default: 2s
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0" yaml:"timeout"`

	// StartOnline is the state used before the source has answered.
	StartOnline bool `mapstructure:"start_online" yaml:"start_online"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Listen is the address the CLI serves /metrics on, e.g. ":9090".
	Listen string `mapstructure:"listen" validate:"omitempty,hostname_port" yaml:"listen,omitempty"`
}

// Load reads configPath (or the default location when empty), applies
// environment overrides and defaults, and validates the result.
// A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// headers may carry credentials
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfigPath is $XDG_CONFIG_HOME/resilient/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "resilient")
	}
	return ".resilient"
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv can see it on Unmarshal.
	setViperDefaults(v, Default())

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(configDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func setViperDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.quiet", d.Logging.Quiet)

	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.shards", d.Cache.Shards)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.eviction", d.Cache.Eviction)
	v.SetDefault("cache.expiration", d.Cache.Expiration)
	v.SetDefault("cache.refresh_ahead", d.Cache.RefreshAhead)

	v.SetDefault("offline.queue_prefix", d.Offline.QueuePrefix)
	v.SetDefault("offline.retry_interval", d.Offline.RetryInterval)
	v.SetDefault("offline.notify", d.Offline.Notify)

	v.SetDefault("store.kind", d.Store.Kind)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("remote.base_url", d.Remote.BaseURL)
	v.SetDefault("remote.timeout", d.Remote.Timeout)

	v.SetDefault("connectivity.mode", d.Connectivity.Mode)
	v.SetDefault("connectivity.url", d.Connectivity.URL)
	v.SetDefault("connectivity.interval", d.Connectivity.Interval)
	v.SetDefault("connectivity.timeout", d.Connectivity.Timeout)
	v.SetDefault("connectivity.start_online", d.Connectivity.StartOnline)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
}

// readConfigFile reports whether a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook accepts "30s"-style strings and plain numbers, which
// are read as seconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		default:
			return data, nil
		}
	}
}
