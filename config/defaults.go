package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultCacheTTL      = 30 * time.Second
	DefaultShards        = 4
	DefaultQueuePrefix   = "@resilient/offline:"
	DefaultRemoteTimeout = 10 * time.Second
)

// Default returns a configuration that works without a file: in-memory
// store, manual connectivity, local backend.
func Default() *Config {
	cfg := &Config{
		Remote: RemoteConfig{BaseURL: "http://localhost:8080"},
		Store:  StoreConfig{Kind: "memory"},
		Connectivity: ConnectivityConfig{
			Mode:        "manual",
			StartOnline: true,
		},
		Offline: OfflineConfig{Notify: true},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values. Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyCacheDefaults(&cfg.Cache)
	applyOfflineDefaults(&cfg.Offline)
	applyStoreDefaults(&cfg.Store)
	applyRemoteDefaults(&cfg.Remote)
	applyConnectivityDefaults(&cfg.Connectivity)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Shards == 0 {
		cfg.Shards = DefaultShards
	}
	cfg.Eviction = strings.ToLower(cfg.Eviction)
	if cfg.Eviction == "" {
		cfg.Eviction = "lru"
	}
	cfg.Expiration = strings.ToLower(cfg.Expiration)
	if cfg.Expiration == "" {
		cfg.Expiration = "write"
	}
}

func applyOfflineDefaults(cfg *OfflineConfig) {
	if cfg.QueuePrefix == "" {
		cfg.QueuePrefix = DefaultQueuePrefix
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	cfg.Kind = strings.ToLower(cfg.Kind)
	if cfg.Kind == "" {
		cfg.Kind = "memory"
	}
}

func applyRemoteDefaults(cfg *RemoteConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRemoteTimeout
	}
}

func applyConnectivityDefaults(cfg *ConnectivityConfig) {
	cfg.Mode = strings.ToLower(cfg.Mode)
	if cfg.Mode == "" {
		cfg.Mode = "manual"
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags on cfg.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
