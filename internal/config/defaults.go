package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultHTTPAddr        = ":8080"
	DefaultGRPCAddr        = ":9090"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxBodySize     = 1 << 20
	DefaultMaxRecvMsgSize  = 4 << 20

	DefaultMonomerSource      = SourceBuiltin
	DefaultMonomerLoadTimeout = 30 * time.Second

	DefaultMaxPermutations = 5040

	DefaultCacheKeyPrefix = "helmkit:"
	DefaultCacheTTL       = time.Hour
	DefaultRedisMode      = "standalone"
	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10

	DefaultDBHost       = "localhost"
	DefaultDBPort       = 5432
	DefaultDBName       = "helmkit"
	DefaultDBSSLMode    = "disable"
	DefaultDBMaxConns   = 10
	DefaultDBIdleConns  = 5
	DefaultDBConnMaxAge = 30 * time.Minute
	DefaultSQLitePath   = "helmkit-monomers.db"

	DefaultMinIORegion        = "us-east-1"
	DefaultMinIOLibraryObject = "monomers/library.yaml"
	DefaultMinIOReportPrefix  = "reports/"

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "helmkit-worker"
	DefaultKafkaRequestTopic = "helmkit.analysis.requested"
	DefaultKafkaResultTopic  = "helmkit.analysis.completed"
	DefaultKafkaDLQTopic     = "helmkit.analysis.dlq"
	DefaultWorkerConcurrency = 4
	DefaultWorkerMaxRetries  = 3
	DefaultWorkerBackoff     = time.Second

	DefaultMetricsNamespace = "helmkit"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with its default. Values
// that are already set are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ───────────────────────────────────────────────────────────────
	h := &cfg.Server.HTTP
	if h.Addr == "" {
		h.Addr = DefaultHTTPAddr
	}
	if h.ReadTimeout == 0 {
		h.ReadTimeout = DefaultReadTimeout
	}
	if h.WriteTimeout == 0 {
		h.WriteTimeout = DefaultWriteTimeout
	}
	if h.ShutdownTimeout == 0 {
		h.ShutdownTimeout = DefaultShutdownTimeout
	}
	if h.MaxBodySize == 0 {
		h.MaxBodySize = DefaultMaxBodySize
	}
	g := &cfg.Server.GRPC
	if g.Addr == "" {
		g.Addr = DefaultGRPCAddr
	}
	if g.MaxRecvMsgSize == 0 {
		g.MaxRecvMsgSize = DefaultMaxRecvMsgSize
	}
	if g.KeepaliveTime == 0 {
		g.KeepaliveTime = 2 * time.Minute
	}
	if g.KeepaliveTimeout == 0 {
		g.KeepaliveTimeout = 20 * time.Second
	}

	// ── Log ──────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Monomers / HELM ──────────────────────────────────────────────────────
	if len(cfg.Monomers.Sources) == 0 {
		cfg.Monomers.Sources = []string{DefaultMonomerSource}
	}
	if cfg.Monomers.LoadTimeout == 0 {
		cfg.Monomers.LoadTimeout = DefaultMonomerLoadTimeout
	}
	if cfg.HELM.MaxPermutations == 0 {
		cfg.HELM.MaxPermutations = DefaultMaxPermutations
	}

	// ── Cache ────────────────────────────────────────────────────────────────
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	r := &cfg.Cache.Redis
	if r.Mode == "" {
		r.Mode = DefaultRedisMode
	}
	if r.Addr == "" && len(r.Addrs) == 0 {
		r.Addr = DefaultRedisAddr
	}
	if r.PoolSize == 0 {
		r.PoolSize = DefaultRedisPoolSize
	}
	if r.DialTimeout == 0 {
		r.DialTimeout = 5 * time.Second
	}
	if r.ReadTimeout == 0 {
		r.ReadTimeout = 3 * time.Second
	}
	if r.WriteTimeout == 0 {
		r.WriteTimeout = 3 * time.Second
	}

	// ── Database ─────────────────────────────────────────────────────────────
	p := &cfg.Database.Postgres
	if p.Host == "" {
		p.Host = DefaultDBHost
	}
	if p.Port == 0 {
		p.Port = DefaultDBPort
	}
	if p.DBName == "" {
		p.DBName = DefaultDBName
	}
	if p.SSLMode == "" {
		p.SSLMode = DefaultDBSSLMode
	}
	if p.MaxOpenConns == 0 {
		p.MaxOpenConns = DefaultDBMaxConns
	}
	if p.MaxIdleConns == 0 {
		p.MaxIdleConns = DefaultDBIdleConns
	}
	if p.ConnMaxLifetime == 0 {
		p.ConnMaxLifetime = DefaultDBConnMaxAge
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = DefaultSQLitePath
	}

	// ── Storage ──────────────────────────────────────────────────────────────
	m := &cfg.Storage.MinIO
	if m.Region == "" {
		m.Region = DefaultMinIORegion
	}
	if m.LibraryObject == "" {
		m.LibraryObject = DefaultMinIOLibraryObject
	}
	if m.ReportPrefix == "" {
		m.ReportPrefix = DefaultMinIOReportPrefix
	}

	// ── Messaging ────────────────────────────────────────────────────────────
	k := &cfg.Messaging.Kafka
	if len(k.Brokers) == 0 {
		k.Brokers = []string{DefaultKafkaBroker}
	}
	if k.GroupID == "" {
		k.GroupID = DefaultKafkaGroupID
	}
	if k.RequestTopic == "" {
		k.RequestTopic = DefaultKafkaRequestTopic
	}
	if k.ResultTopic == "" {
		k.ResultTopic = DefaultKafkaResultTopic
	}
	if k.DLQTopic == "" {
		k.DLQTopic = DefaultKafkaDLQTopic
	}
	if k.Concurrency == 0 {
		k.Concurrency = DefaultWorkerConcurrency
	}
	if k.MaxRetries == 0 {
		k.MaxRetries = DefaultWorkerMaxRetries
	}
	if k.RetryBackoff == 0 {
		k.RetryBackoff = DefaultWorkerBackoff
	}

	// ── Metrics ──────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// NewDefaultConfig returns a Config populated only with defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
