package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for every setting.
const envPrefix = "HELMKIT"

// envKeys lists the keys that may be supplied from the environment alone.
// viper only consults AutomaticEnv for keys it already knows about.
var envKeys = []string{
	"server.http.addr", "server.grpc.enabled", "server.grpc.addr", "server.grpc.reflection",
	"log.level", "log.format", "log.service",
	"monomers.sources", "monomers.file",
	"helm.strict_sequences", "helm.max_permutations",
	"cache.enabled", "cache.key_prefix", "cache.ttl",
	"cache.redis.mode", "cache.redis.addr", "cache.redis.password", "cache.redis.db",
	"database.postgres.host", "database.postgres.port", "database.postgres.user",
	"database.postgres.password", "database.postgres.db_name", "database.postgres.ssl_mode",
	"database.postgres.auto_migrate", "database.sqlite.path",
	"storage.minio.endpoint", "storage.minio.access_key", "storage.minio.secret_key",
	"storage.minio.use_ssl", "storage.minio.bucket", "storage.minio.archive_reports",
	"messaging.kafka.brokers", "messaging.kafka.group_id", "messaging.kafka.concurrency",
	"metrics.enabled", "metrics.namespace",
}

// newViper builds a Viper instance with YAML, the HELMKIT_ env prefix and a
// "." → "_" key replacer so "cache.redis.addr" resolves to HELMKIT_CACHE_REDIS_ADDR.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges HELMKIT_* overrides, applies
// defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from HELMKIT_* variables and defaults only.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrDefault loads configPath when it is non-empty and falls back to
// LoadFromEnv otherwise.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	// Comma separated lists from the environment arrive as a single element.
	cfg.Monomers.Sources = splitList(cfg.Monomers.Sources)
	cfg.Messaging.Kafka.Brokers = splitList(cfg.Messaging.Kafka.Brokers)

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Watch reloads configPath on change and calls onChange with the new Config.
// Invalid revisions are reported to onError (when non-nil) and skipped.
// Only hot-reloadable settings such as the log level should be applied.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics on error. For main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
