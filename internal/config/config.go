// Package config defines the configuration structures for helmkit. No I/O
// lives here, only data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
)

// Monomer source names accepted in MonomerConfig.Sources.
const (
	SourceBuiltin  = "builtin"
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
	SourceMinIO    = "minio"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// HTTPConfig holds HTTP server tunables.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// GRPCConfig holds gRPC server tunables.
type GRPCConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Addr             string        `mapstructure:"addr"`
	Reflection       bool          `mapstructure:"reflection"`
	MaxRecvMsgSize   int           `mapstructure:"max_recv_msg_size"`
	KeepaliveTime    time.Duration `mapstructure:"keepalive_time"`
	KeepaliveTimeout time.Duration `mapstructure:"keepalive_timeout"`
}

// ServerConfig groups the API listeners.
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

// MonomerConfig selects where the monomer registry is populated from.
// Sources are applied in order; later sources override earlier ones.
type MonomerConfig struct {
	Sources     []string      `mapstructure:"sources"`
	File        string        `mapstructure:"file"`
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
}

// HELMConfig holds notation processing options.
type HELMConfig struct {
	// StrictSequences turns a missing natural analogue into an error.
	StrictSequences bool `mapstructure:"strict_sequences"`
	// MaxPermutations bounds the tie-breaking search of the canonicalizer.
	MaxPermutations int `mapstructure:"max_permutations"`
}

// RedisConfig holds Redis connection parameters for the analysis cache.
type RedisConfig struct {
	Mode         string        `mapstructure:"mode"` // standalone | sentinel | cluster
	Addr         string        `mapstructure:"addr"`
	Addrs        []string      `mapstructure:"addrs"`
	MasterName   string        `mapstructure:"master_name"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CacheConfig controls analysis report caching.
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

// PostgresConfig holds PostgreSQL parameters for the monomer store.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// SQLiteConfig holds the local monomer store location.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig groups the monomer stores.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

// MinIOConfig holds object-storage parameters for monomer libraries and reports.
type MinIOConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	LibraryObject  string `mapstructure:"library_object"`
	ReportPrefix   string `mapstructure:"report_prefix"`
	ArchiveReports bool   `mapstructure:"archive_reports"`
}

// StorageConfig groups object storage backends.
type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

// KafkaConfig holds the batch worker's broker and topic settings.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	GroupID      string        `mapstructure:"group_id"`
	RequestTopic string        `mapstructure:"request_topic"`
	ResultTopic  string        `mapstructure:"result_topic"`
	DLQTopic     string        `mapstructure:"dlq_topic"`
	Concurrency  int           `mapstructure:"concurrency"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// MessagingConfig groups message brokers.
type MessagingConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// MetricsConfig controls the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Log       logging.LogConfig `mapstructure:"log"`
	Monomers  MonomerConfig     `mapstructure:"monomers"`
	HELM      HELMConfig        `mapstructure:"helm"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Storage   StorageConfig     `mapstructure:"storage"`
	Messaging MessagingConfig   `mapstructure:"messaging"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
}

// UsesSource reports whether name is listed in Monomers.Sources.
func (c *Config) UsesSource(name string) bool {
	for _, s := range c.Monomers.Sources {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// Validate performs semantic validation of a fully defaulted Config.
func (c *Config) Validate() error {
	if c.Server.HTTP.Addr == "" {
		return fmt.Errorf("config: server.http.addr must not be empty")
	}
	if c.Server.GRPC.Enabled && c.Server.GRPC.Addr == "" {
		return fmt.Errorf("config: server.grpc.addr must not be empty when grpc is enabled")
	}
	if len(c.Monomers.Sources) == 0 {
		return fmt.Errorf("config: monomers.sources must list at least one source")
	}
	for _, s := range c.Monomers.Sources {
		switch strings.ToLower(s) {
		case SourceBuiltin, SourcePostgres, SourceSQLite:
		case SourceFile:
			if c.Monomers.File == "" {
				return fmt.Errorf("config: monomers.file is required for the file source")
			}
		case SourceMinIO:
			if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
				return fmt.Errorf("config: storage.minio endpoint and bucket are required for the minio source")
			}
		default:
			return fmt.Errorf("config: unknown monomer source %q", s)
		}
	}
	if c.UsesSource(SourcePostgres) && c.Database.Postgres.Host == "" {
		return fmt.Errorf("config: database.postgres.host is required for the postgres source")
	}
	if c.UsesSource(SourceSQLite) && c.Database.SQLite.Path == "" {
		return fmt.Errorf("config: database.sqlite.path is required for the sqlite source")
	}
	if c.HELM.MaxPermutations < 1 {
		return fmt.Errorf("config: helm.max_permutations must be positive, got %d", c.HELM.MaxPermutations)
	}
	if c.Cache.Enabled && c.Cache.Redis.Addr == "" && len(c.Cache.Redis.Addrs) == 0 {
		return fmt.Errorf("config: cache.redis.addr is required when the cache is enabled")
	}
	if c.Messaging.Kafka.Concurrency < 1 {
		return fmt.Errorf("config: messaging.kafka.concurrency must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace must not be empty")
	}
	return nil
}
